package safety

import (
	"strings"
	"testing"
)

func TestCheckAllowsPlainCode(t *testing.T) {
	safe := []string{
		"print('hello, world!')",
		"print(12345 * 54321)",
		"import json\nprint(json.dumps({'a': 1}))",
		"import requests\nprint(requests.__name__)",
		"from os import path\nprint(path.join('a', 'b'))",
		"from os import environ\nprint(environ.get('HOME'))",
		"x = [i * i for i in range(10)]\nprint(sum(x))",
		"with_tmp = '/tmp/scratch.txt'\nprint(with_tmp)",
		"",
	}
	for _, src := range safe {
		if err := Check(src); err != nil {
			t.Errorf("Check(%q) rejected safe code: %v", src, err)
		}
	}
}

func TestCheckBlockedSubstrings(t *testing.T) {
	// One snippet per blocklist entry; each must be rejected.
	tests := map[string]string{
		"os.system":   "import os\nos.system('ls')",
		"subprocess.": "import subprocess\nsubprocess.run(['ls'])",
		"eval(":       "eval('1+1')",
		"exec(":       "exec('print(1)')",
		"open(":       "open('secret.txt').read()",
		"compile(":    "compile('1', '<s>', 'eval')",
		"__import__":  "__import__('os')",
		"importlib":   "import importlib\nimportlib.import_module('os')",
		"sys.modules": "import sys\nprint(sys.modules)",
		"globals()":   "globals()['x'] = 1",
		"locals()":    "print(locals())",
		"delattr":     "delattr(obj, 'x')",
		"setattr":     "setattr(obj, 'x', 1)",
		"rm -rf":      "cmd = 'rm -rf /'",
	}
	for entry, src := range tests {
		if err := Check(src); err == nil {
			t.Errorf("blocklist entry %q: Check(%q) should reject", entry, src)
		}
	}
}

func TestCheckBlockedWords(t *testing.T) {
	for _, src := range []string{
		"pid = fork()",
		"kill(pid)",
	} {
		if err := Check(src); err == nil {
			t.Errorf("Check(%q) should reject", src)
		}
	}

	// Whole-word matching: embedded occurrences pass.
	for _, src := range []string{
		"print('forklift')",
		"print('roadkill count')",
	} {
		if err := Check(src); err != nil {
			t.Errorf("Check(%q) rejected on embedded word: %v", src, err)
		}
	}
}

func TestCheckBlockedModules(t *testing.T) {
	modules := []string{
		"subprocess", "socket", "ctypes", "multiprocessing",
		"threading", "_thread", "pty", "resource", "signal", "sys",
	}
	for _, mod := range modules {
		src := "import " + mod
		if err := Check(src); err == nil {
			t.Errorf("Check(%q) should reject", src)
		}
		from := "from " + mod + " import something"
		if err := Check(from); err == nil {
			t.Errorf("Check(%q) should reject", from)
		}
	}
}

func TestCheckOSImport(t *testing.T) {
	// Bare os import is unverifiable.
	if err := Check("import os"); err == nil {
		t.Error("bare 'import os' should be rejected")
	}
	// Read-only members pass.
	if err := Check("from os import path, environ"); err != nil {
		t.Errorf("read-only os members rejected: %v", err)
	}
	// Anything else from os is rejected.
	if err := Check("from os import remove"); err == nil {
		t.Error("'from os import remove' should be rejected")
	}
	if err := Check("from os import fdopen"); err == nil {
		t.Error("'from os import fdopen' should be rejected")
	}
}

func TestCheckDunderAttributes(t *testing.T) {
	for _, src := range []string{
		"f.__globals__['x']",
		"().__class__.__bases__",
		"obj.__dict__",
	} {
		if err := Check(src); err == nil {
			t.Errorf("Check(%q) should reject dunder access", src)
		}
	}

	for _, src := range []string{
		"import requests\nprint(requests.__name__)",
		"import numpy\nprint(numpy.__version__)",
	} {
		if err := Check(src); err != nil {
			t.Errorf("Check(%q) rejected allowed dunder: %v", src, err)
		}
	}
}

func TestCheckPathLiterals(t *testing.T) {
	if err := Check("p = '/etc/passwd'"); err == nil {
		t.Error("absolute path outside /tmp should be rejected")
	}
	if err := Check(`data = "/var/log/syslog"`); err == nil {
		t.Error("absolute path outside /tmp should be rejected")
	}
	if err := Check("p = '/tmp/out.csv'"); err != nil {
		t.Errorf("/tmp path rejected: %v", err)
	}
}

func TestCheckErrorMessagesAreDescriptive(t *testing.T) {
	err := Check("import subprocess")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "subprocess") {
		t.Errorf("message %q should name the module", err.Error())
	}
}
