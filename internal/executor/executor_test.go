package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/michaelbrown/agentrun/internal/container"
)

func TestRunReturnsStdoutOnSuccess(t *testing.T) {
	fake := container.NewFake()
	fake.RunPython = func(source string) container.ExecResult {
		return container.ExecResult{Stdout: "hello, world!\n"}
	}

	res, err := New(fake, time.Second).Run(context.Background(), "print('hello, world!')")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != "hello, world!\n" {
		t.Errorf("outcome = %q, want stdout", res.Outcome)
	}
	if res.TimedOut {
		t.Error("should not report timeout")
	}
}

func TestRunReturnsStderrOnFailure(t *testing.T) {
	traceback := "Traceback (most recent call last):\n  File \"/tmp/x.py\", line 1, in <module>\nZeroDivisionError: division by zero\n"
	fake := container.NewFake()
	fake.RunPython = func(source string) container.ExecResult {
		return container.ExecResult{Stdout: "partial stdout", Stderr: traceback, ExitCode: 1}
	}

	res, err := New(fake, time.Second).Run(context.Background(), "1/0")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != traceback {
		t.Errorf("outcome = %q, want the stderr traceback", res.Outcome)
	}
	if res.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", res.ExitCode)
	}
}

func TestRunPreservesOutputBytes(t *testing.T) {
	// Progress-bar noise with carriage returns must pass through untouched.
	noisy := "downloading\r 50%\r100%\ndone\n"
	fake := container.NewFake()
	fake.RunPython = func(source string) container.ExecResult {
		return container.ExecResult{Stdout: noisy}
	}

	res, err := New(fake, time.Second).Run(context.Background(), "print('x')")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != noisy {
		t.Errorf("outcome = %q, want %q", res.Outcome, noisy)
	}
}

func TestRunEmptySource(t *testing.T) {
	fake := container.NewFake()
	res, err := New(fake, time.Second).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != "" {
		t.Errorf("outcome = %q, want empty", res.Outcome)
	}
}

func TestRunTimesOut(t *testing.T) {
	fake := container.NewFake()
	fake.ExecDelay = 200 * time.Millisecond

	start := time.Now()
	res, err := New(fake, 20*time.Millisecond).Run(context.Background(), "import time\ntime.sleep(30)")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected timeout")
	}
	if res.Outcome != TimedOutMessage {
		t.Errorf("outcome = %q, want %q", res.Outcome, TimedOutMessage)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run took %v, should return promptly after deadline", elapsed)
	}

	// The container-side process must be hunted down.
	var killed bool
	for _, c := range fake.CallsOf("exec") {
		if len(c.Args) > 0 && c.Args[0] == "pkill" {
			killed = true
		}
	}
	if !killed {
		t.Error("expected a pkill of the script after timeout")
	}
}

func TestRunCleansUpScriptFile(t *testing.T) {
	cases := map[string]func(*container.Fake){
		"success": func(f *container.Fake) {},
		"failure": func(f *container.Fake) {
			f.RunPython = func(string) container.ExecResult {
				return container.ExecResult{ExitCode: 1, Stderr: "boom"}
			}
		},
		"timeout": func(f *container.Fake) {
			f.ExecDelay = 100 * time.Millisecond
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			fake := container.NewFake()
			setup(fake)

			timeout := time.Second
			if name == "timeout" {
				timeout = 10 * time.Millisecond
			}
			if _, err := New(fake, timeout).Run(context.Background(), "print(1)"); err != nil {
				t.Fatalf("Run: %v", err)
			}

			for path := range fake.Files {
				if strings.HasPrefix(path, "/tmp/script_") {
					t.Errorf("snippet file %s left on container", path)
				}
			}
		})
	}
}

func TestRunUniquePaths(t *testing.T) {
	fake := container.NewFake()
	ex := New(fake, time.Second)

	for i := 0; i < 3; i++ {
		if _, err := ex.Run(context.Background(), "print(1)"); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	seen := make(map[string]bool)
	for _, c := range fake.CallsOf("copy_in") {
		path := c.Args[0]
		if seen[path] {
			t.Errorf("snippet path %s reused", path)
		}
		seen[path] = true
	}
	if len(seen) != 3 {
		t.Errorf("got %d distinct paths, want 3", len(seen))
	}
}
