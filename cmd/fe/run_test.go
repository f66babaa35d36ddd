package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joomcode/errorx"

	"github.com/chazu/fe/manifest"
	"github.com/chazu/fe/vm"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func runCapture(t *testing.T, opts runOptions) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(opts, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

const factorialSource = `
int fact(int n) {
    if (n < 2) {
        return 1;
    }
    return n * fact(n - 1);
}
fact(5);
`

func TestRunPrintsResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, factorialSource)

	stdout, _, err := runCapture(t, runOptions{Path: path})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "120\n" {
		t.Errorf("stdout = %q, want 120", stdout)
	}
}

func TestRunListingOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, "int x = 2;\nx = x * 3;\n")

	stdout, _, err := runCapture(t, runOptions{Path: path, ListingOnly: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	first := strings.Fields(strings.SplitN(stdout, "\n", 2)[0])
	if strings.Join(first, " ") != "=> 0000 PUSH 2" {
		t.Errorf("listing = %q, want it to start at the entry", stdout)
	}
	if !strings.Contains(stdout, "HALT") {
		t.Errorf("listing = %q, want a HALT", stdout)
	}
	if strings.HasSuffix(strings.TrimSpace(stdout), "6") {
		t.Error("-S should not run the program")
	}
}

func TestRunUsesProjectManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.FileName), `
[project]
name = "demo"
entry = "main.fe"

[output]
fingerprint = true
`)
	writeFile(t, filepath.Join(dir, "main.fe"), factorialSource)

	chdir(t, dir)

	stdout, _, err := runCapture(t, runOptions{Record: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "fingerprint ") || lines[1] != "120" {
		t.Fatalf("stdout = %q, want a fingerprint line then 120", stdout)
	}

	lf, err := manifest.ReadLock(filepath.Join(dir, ".fe", "lock.toml"))
	if err != nil || lf == nil {
		t.Fatalf("ReadLock = %v, %v", lf, err)
	}
	b := lf.FindBuild("main.fe")
	if b == nil || "fingerprint "+b.Fingerprint != lines[0] {
		t.Errorf("recorded build = %+v, want the printed fingerprint", b)
	}
}

func TestRunReportsWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, "int f() {\n    return 7;\n    int dead = 1;\n}\nf();\n")

	stdout, stderr, err := runCapture(t, runOptions{Path: path})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "7\n" {
		t.Errorf("stdout = %q, want 7", stdout)
	}
	if !strings.Contains(stderr, path+":3:5: warning: unreachable code") {
		t.Errorf("stderr = %q, want the unreachable code warning", stderr)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"parse", "int x = ;", "parse failed"},
		{"check", "int x = y;", "undeclared variable y"},
		{"compile", "break;", "break outside of a loop"},
		{"runtime", "int z = 0;\n10 / z;", "run failed at instruction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "main.fe")
			writeFile(t, path, tt.src)

			_, _, err := runCapture(t, runOptions{Path: path})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRunDivisionByZeroKeepsType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, "1 / 0;")

	_, _, err := runCapture(t, runOptions{Path: path})
	if !errorx.IsOfType(err, vm.DivisionByZero) {
		t.Errorf("error = %v, want vm.division_by_zero", err)
	}
}

func TestRunStackOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, "int f(int n) {\n    return f(n + 1);\n}\nf(0);\n")

	_, _, err := runCapture(t, runOptions{Path: path, StackSize: 8})
	if !errorx.IsOfType(err, vm.StackOverflow) {
		t.Errorf("error = %v, want vm.stack_overflow", err)
	}
}

func TestRunTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, "1 + 2;")

	_, stderr, err := runCapture(t, runOptions{Path: path, Trace: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	first := strings.Fields(strings.SplitN(stderr, "\n", 2)[0])
	if strings.Join(first, " ") != "0000 PUSH 1 sp=0" {
		t.Errorf("trace = %q", stderr)
	}
}

func TestRunWithoutEntry(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := runCapture(t, runOptions{})
	if !errorx.IsOfType(err, errorx.IllegalArgument) {
		t.Errorf("error = %v, want an illegal argument error", err)
	}
}

func TestRunProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.fe")
	writeFile(t, path, factorialSource)

	stdout, stderr, err := runCapture(t, runOptions{Path: path, Profile: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "120\n" {
		t.Errorf("stdout = %q, want 120", stdout)
	}
	if !strings.HasPrefix(stderr, "profile: ") {
		t.Errorf("stderr = %q, want a profile", stderr)
	}
	calls := ""
	for _, line := range strings.Split(stderr, "\n") {
		if f := strings.Fields(line); len(f) == 2 && f[0] == "fact" {
			calls = f[1]
		}
	}
	if calls != "calls=5" {
		t.Errorf("fact %s, want calls=5 in %q", calls, stderr)
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
