package shell

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/watercolor-games/redteam/core/console"
	"github.com/watercolor-games/redteam/core/console/consoletest"
	"github.com/watercolor-games/redteam/core/logger"
	"github.com/watercolor-games/redteam/core/vfs"
)

const testHome = "/home/user"

func newTestFs(t *testing.T) *vfs.FileSystem {
	t.Helper()

	memFs := afero.NewMemMapFs()
	for _, dir := range []string{testHome + "/docs", testHome + "/My Games", "/tmp"} {
		if err := memFs.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	for name, contents := range map[string]string{
		testHome + "/notes.txt":     "remember the milk\n",
		testHome + "/docs/plan.txt": "step one",
	} {
		if err := afero.WriteFile(memFs, name, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return vfs.New(memFs)
}

type testShell struct {
	*Shell
	con *consoletest.Console
	fs  *vfs.FileSystem
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()

	con := consoletest.New()
	fs := newTestFs(t)
	sh := New(con, fs, Options{Home: testHome})
	sh.Start()
	return &testShell{Shell: sh, con: con, fs: fs}
}

// run feeds each line and ticks until the shell is idle again.
func (ts *testShell) run(lines ...string) {
	for _, line := range lines {
		ts.con.Feed(line)
		ts.Tick()
		for ts.State() == StateExecuting {
			ts.Tick()
		}
	}
}

const testPrompt = testHome + "# "

func TestNew_defaults(t *testing.T) {
	con := consoletest.New()
	sh := New(con, newTestFs(t), Options{})

	assert.Equal(t, DefaultName, sh.Name())
	assert.Equal(t, DefaultHome, sh.Home())
	assert.Equal(t, DefaultHome, sh.WorkingDirectory())
	assert.Equal(t, StateIdle, sh.State())
	assert.Equal(t, con.Completer, console.Completer(sh))
	assert.Equal(t, []string{"clear", "echo", "ls", "cd", "cat", "pwd", "help", "exit"}, sh.Builtins().Names())
}

func TestNew_workingDirectory(t *testing.T) {
	sh := New(consoletest.New(), newTestFs(t), Options{Home: testHome, WorkingDirectory: "~/docs"})
	assert.Equal(t, testHome+"/docs", sh.WorkingDirectory())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "executing", StateExecuting.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestShell_Tick(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, testPrompt, ts.con.String())

	t.Run("no input", func(t *testing.T) {
		ts.Tick()
		assert.Equal(t, StateIdle, ts.State())
		assert.Equal(t, testPrompt, ts.con.String())
	})

	t.Run("line is queued then run on the next tick", func(t *testing.T) {
		ts.con.Feed("echo first", "echo second")

		ts.Tick()
		assert.Equal(t, StateExecuting, ts.State())
		assert.Equal(t, testPrompt, ts.con.String())
		assert.Equal(t, []string{"echo second"}, ts.con.Input)

		ts.Tick()
		assert.Equal(t, StateIdle, ts.State())
		assert.Equal(t, testPrompt+"first\n"+testPrompt, ts.con.String())
		assert.Equal(t, []string{"echo second"}, ts.con.Input, "no input is read while executing")

		ts.Tick()
		ts.Tick()
		assert.Equal(t, testPrompt+"first\n"+testPrompt+"second\n"+testPrompt, ts.con.String())
		assert.Empty(t, ts.con.Input)
	})

	t.Run("blank line", func(t *testing.T) {
		ts.con.Out.Reset()
		ts.con.Feed("  \t ")
		ts.Tick()

		assert.Equal(t, StateIdle, ts.State())
		assert.Equal(t, testPrompt, ts.con.String())
	})

	t.Run("syntax error", func(t *testing.T) {
		ts.con.Out.Reset()
		ts.con.Feed(`echo "open`)
		ts.Tick()

		assert.Equal(t, StateIdle, ts.State())
		assert.Equal(t, "sh: error: unterminated string\n"+testPrompt, ts.con.String())
	})
}

func TestShell_drain(t *testing.T) {
	ts := newTestShell(t)

	var ran []string
	track := func(result error) BuiltinFunc {
		return func(out console.Output, name string, args []string) error {
			ran = append(ran, name)
			return result
		}
	}
	ts.Register("ok", "", track(nil))
	ts.Register("fails", "", track(errors.New("boom")))
	ts.Register("panics", "", func(out console.Output, name string, args []string) error {
		ran = append(ran, name)
		panic("kaboom")
	})

	for _, name := range []string{"ok", "fails", "panics", "missing", "ok"} {
		ts.queue = append(ts.queue, &Instruction{Name: name, Output: ts.con})
	}
	ts.state = StateExecuting
	ts.con.Out.Reset()

	assert.NotPanics(t, ts.Tick)

	assert.Equal(t, []string{"ok", "fails", "panics", "ok"}, ran)
	assert.Equal(t, StateIdle, ts.State())
	assert.Empty(t, ts.queue)
	assert.Equal(t, "fails: error: boom\n"+
		"panics: error: kaboom\n"+
		"sh: missing: Command not found.\n"+
		testPrompt, ts.con.String())
}

func TestShell_unknownCommand(t *testing.T) {
	ts := newTestShell(t)
	ts.run("nmap -sS 10.0.0.1")

	assert.Equal(t, testPrompt+"sh: nmap: Command not found.\n"+testPrompt, ts.con.String())
}

func TestShell_customName(t *testing.T) {
	con := consoletest.New("nmap")
	sh := New(con, newTestFs(t), Options{Name: "bash", Home: "/root"})
	sh.Tick()
	sh.Tick()

	assert.Equal(t, "bash: nmap: Command not found.\n/root# ", con.String())
}

func TestShell_redirect(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ts := newTestShell(t)
		ts.run("echo hi > /tmp/out.txt", "cat /tmp/out.txt")

		assert.Equal(t, testPrompt+testPrompt+"hi\n"+testPrompt, ts.con.String())
	})

	t.Run("raw bytes in the name", func(t *testing.T) {
		ts := newTestShell(t)
		ts.run("echo hi > /tmp/out\xff.txt", "cat /tmp/out\xff.txt")

		assert.True(t, ts.fs.FileExists("/tmp/out\xff.txt"))
		assert.Equal(t, testPrompt+testPrompt+"hi\n"+testPrompt, ts.con.String())
	})

	t.Run("truncate", func(t *testing.T) {
		ts := newTestShell(t)
		ts.run("echo one > /tmp/out.txt", "echo two > /tmp/out.txt")

		text, err := ts.fs.ReadAllText("/tmp/out.txt")
		assert.Nil(t, err)
		assert.Equal(t, "two\n", text)
	})

	t.Run("append", func(t *testing.T) {
		ts := newTestShell(t)
		ts.run("echo one > /tmp/out.txt", "echo two >> /tmp/out.txt")

		text, err := ts.fs.ReadAllText("/tmp/out.txt")
		assert.Nil(t, err)
		assert.Equal(t, "one\ntwo\n", text)
	})

	t.Run("errors go to the target", func(t *testing.T) {
		ts := newTestShell(t)
		ts.run("cd > /tmp/err.txt")

		text, err := ts.fs.ReadAllText("/tmp/err.txt")
		assert.Nil(t, err)
		assert.Equal(t, "cd: error: usage: cd <path>\n", text)
		assert.Equal(t, testPrompt+testPrompt, ts.con.String())
	})

	t.Run("clear truncates the target", func(t *testing.T) {
		ts := newTestShell(t)
		ts.run("echo old > /tmp/out.txt", "clear >> /tmp/out.txt")

		text, err := ts.fs.ReadAllText("/tmp/out.txt")
		assert.Nil(t, err)
		assert.Empty(t, text)
		assert.Zero(t, ts.con.Clears)
	})
}

type closeCountingOutput struct {
	console.Output
	closed int
}

func (c *closeCountingOutput) Close() error {
	c.closed++
	return nil
}

type trackingFs struct {
	*vfs.FileSystem
	outputs []*closeCountingOutput
}

func (fs *trackingFs) CreateOutput(name string, appendTo bool) (console.Output, error) {
	out, err := fs.FileSystem.CreateOutput(name, appendTo)
	if err != nil {
		return nil, err
	}
	tracked := &closeCountingOutput{Output: out}
	fs.outputs = append(fs.outputs, tracked)
	return tracked, nil
}

func TestShell_redirectIsClosed(t *testing.T) {
	cases := []string{
		"echo hi > /tmp/out.txt",
		"cat /nope > /tmp/out.txt",
		"missing > /tmp/out.txt",
		"exit now > /tmp/out.txt",
	}

	for _, line := range cases {
		t.Run(line, func(t *testing.T) {
			fs := &trackingFs{FileSystem: newTestFs(t)}
			con := consoletest.New(line)
			sh := New(con, fs, Options{Home: testHome})
			sh.Tick()
			sh.Tick()

			assert.Len(t, fs.outputs, 1)
			assert.Equal(t, 1, fs.outputs[0].closed)
		})
	}
}

type memRecorder struct {
	events []logger.LogType
}

func (r *memRecorder) Record(event logger.LogType) error {
	r.events = append(r.events, event)
	return nil
}

func TestShell_records(t *testing.T) {
	recorder := &memRecorder{}
	con := consoletest.New("echo hi > /tmp/x", "nmap", `echo "`, "cd nowhere")
	sh := New(con, newTestFs(t), Options{Home: testHome, Recorder: recorder})
	for i := 0; i < 10; i++ {
		sh.Tick()
	}

	assert.Equal(t, []logger.LogType{
		&logger.RunCommand{Command: []string{"echo", "hi"}, Redirect: "/tmp/x"},
		&logger.UnknownCommand{Command: []string{"nmap"}},
		&logger.ParseError{Line: `echo "`, Error: "unterminated string"},
		&logger.RunCommand{Command: []string{"cd", "nowhere"}},
		&logger.CommandError{Command: []string{"cd", "nowhere"}, Error: "nowhere: Directory not found."},
	}, recorder.events)
}

func TestShell_exit(t *testing.T) {
	ts := newTestShell(t)

	ts.run("exit now")
	assert.False(t, ts.Exited())
	assert.Contains(t, ts.con.String(), "exit: error: too many arguments\n")

	ts.run("exit")
	assert.True(t, ts.Exited())
}

func TestShell_cd(t *testing.T) {
	ts := newTestShell(t)
	assert.NotContains(t, ts.Complete(""), "plan.txt")

	ts.run("cd docs")
	assert.Equal(t, testHome+"/docs", ts.WorkingDirectory())
	assert.Contains(t, ts.Complete(""), "plan.txt", "completions follow the working directory")

	ts.run("cd ~")
	assert.Equal(t, testHome, ts.WorkingDirectory())

	ts.run("cd notes.txt")
	assert.Equal(t, testHome, ts.WorkingDirectory())
	assert.Contains(t, ts.con.String(), "cd: error: notes.txt: Directory not found.\n")
}

func TestShell_cat(t *testing.T) {
	ts := newTestShell(t)
	ts.con.Out.Reset()

	ts.run("cat docs/plan.txt")
	assert.Equal(t, "step one\n"+testPrompt, ts.con.String(), "a trailing newline is added")

	ts.con.Out.Reset()
	if err := ts.fs.WriteAllText("/tmp/empty.txt", ""); err != nil {
		t.Fatal(err)
	}
	ts.run("cat /tmp/empty.txt")
	assert.Equal(t, "\n"+testPrompt, ts.con.String(), "an empty file is a blank line")

	ts.con.Out.Reset()
	ts.run("cat docs")
	assert.Equal(t, "cat: /home/user/docs: Is a directory\n"+testPrompt, ts.con.String())

	ts.con.Out.Reset()
	ts.run("cat")
	assert.Equal(t, "cat: error: usage: cat <path>\n"+testPrompt, ts.con.String())
}

func TestShell_ls(t *testing.T) {
	cases := map[string]string{
		"ls":               "My Games\ndocs\nnotes.txt\n",
		"ls --color=never": "My Games\ndocs\nnotes.txt\n",
		"ls --color=always": "\x1b[34;1mMy Games\x1b[0m\n" +
			"\x1b[34;1mdocs\x1b[0m\n" +
			"notes.txt\n",
	}

	for line, expected := range cases {
		t.Run(line, func(t *testing.T) {
			ts := newTestShell(t)
			ts.con.Out.Reset()
			ts.run(line)

			assert.Equal(t, expected+testPrompt, ts.con.String())
		})
	}

	t.Run("bad flag", func(t *testing.T) {
		ts := newTestShell(t)
		ts.con.Out.Reset()
		ts.run("ls --color=sometimes")

		assert.Contains(t, ts.con.String(), "ls: error: ")
	})
}

type terminalConsole struct {
	*consoletest.Console
}

func (terminalConsole) IsTerminal() bool { return true }

func TestShell_lsColorAuto(t *testing.T) {
	con := terminalConsole{consoletest.New("ls")}
	sh := New(con, newTestFs(t), Options{Home: testHome})
	sh.Tick()
	sh.Tick()

	assert.Contains(t, con.String(), "\x1b[34;1mdocs\x1b[0m\n")
}
