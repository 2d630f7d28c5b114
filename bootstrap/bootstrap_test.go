// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/cbs/model"
	"github.com/choria-io/cbs/model/modelmocks"
)

func TestBootstrap(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bootstrap")
}

var _ = Describe("Bootstrapper", func() {
	var (
		mockctl  *gomock.Controller
		logger   *modelmocks.MockLogger
		td       string
		exe      string
		src      string
		lib      string
		echo     *bytes.Buffer
		replaced int
		gotExe   string
		gotArgv  []string
		gotEnv   []string
		replacer Replacer
		now      time.Time
	)

	write := func(path string, content string, ts time.Time) {
		Expect(os.WriteFile(path, []byte(content), 0755)).To(Succeed())
		Expect(os.Chtimes(path, ts, ts)).To(Succeed())
	}

	newBootstrapper := func(opts ...Option) *Bootstrapper {
		opts = append([]Option{
			WithExecutable(exe),
			WithSource(src),
			WithLibraries(lib),
			WithArgs([]string{exe, "build", "--fast"}),
			WithEnvironment([]string{"A=1"}),
			WithEcho(echo),
			WithReplacer(replacer),
		}, opts...)

		b, err := New(logger, opts...)
		Expect(err).ToNot(HaveOccurred())
		return b
	}

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		logger = modelmocks.NewLogger(mockctl)

		td = GinkgoT().TempDir()
		exe = filepath.Join(td, "build")
		src = filepath.Join(td, "build.go")
		lib = filepath.Join(td, "cbs.go")
		echo = bytes.NewBuffer(nil)
		replaced = 0
		gotExe, gotArgv, gotEnv = "", nil, nil
		now = time.Now()

		replacer = func(executable string, argv []string, env []string) error {
			replaced++
			gotExe = executable
			gotArgv = argv
			gotEnv = env
			return nil
		}

		write(src, "package main\n", now.Add(-2*time.Hour))
		write(lib, "package cbs\n", now.Add(-2*time.Hour))
		write(exe, "old binary", now.Add(-time.Hour))
	})

	AfterEach(func() {
		mockctl.Finish()
	})

	Describe("New", func() {
		It("Should default the source to the calling file", func() {
			b, err := New(logger, WithExecutable(exe))
			Expect(err).ToNot(HaveOccurred())
			Expect(filepath.Base(b.Source())).To(Equal("bootstrap_test.go"))

			var rel []string
			for _, lib := range b.Libraries() {
				Expect(lib).ToNot(HaveSuffix("_test.go"))
				Expect(lib).ToNot(ContainSubstring(string(filepath.Separator) + "examples" + string(filepath.Separator)))
				Expect(lib).ToNot(ContainSubstring(string(filepath.Separator) + "cmd" + string(filepath.Separator)))
				rel = append(rel, filepath.Join(filepath.Base(filepath.Dir(lib)), filepath.Base(lib)))
			}

			Expect(rel).To(ContainElements(
				filepath.Join("bootstrap", "bootstrap.go"),
				filepath.Join("process", "runner.go"),
				filepath.Join("command", "command.go"),
				filepath.Join("pool", "pool.go"),
			))
		})

		It("Should default to go build", func() {
			os.Unsetenv(CompilerEnvironment)
			b := newBootstrapper()
			Expect(b.Compiler()).To(Equal([]string{"go", "build"}))
		})

		It("Should take the compiler from the environment", func() {
			os.Setenv(CompilerEnvironment, `go build -tags "netgo osusergo"`)
			DeferCleanup(os.Unsetenv, CompilerEnvironment)

			b := newBootstrapper()
			Expect(b.Compiler()).To(Equal([]string{"go", "build", "-tags", "netgo osusergo"}))
		})

		It("Should prefer configured compilers", func() {
			os.Setenv(CompilerEnvironment, "gccgo")
			DeferCleanup(os.Unsetenv, CompilerEnvironment)

			b := newBootstrapper(WithCompilerString("go build -trimpath"))
			Expect(b.Compiler()).To(Equal([]string{"go", "build", "-trimpath"}))
		})

		It("Should reject invalid compilers", func() {
			_, err := New(logger, WithCompilerString(`go "build`))
			Expect(err).To(MatchError(ContainSubstring("invalid compiler")))
		})
	})

	Describe("Rebuild", func() {
		It("Should do nothing when the executable is fresh", func() {
			b := newBootstrapper(WithCompiler("false"))

			for range 3 {
				state, err := b.Rebuild(context.Background())
				Expect(err).ToNot(HaveOccurred())
				Expect(state).To(Equal(Fresh))
			}

			Expect(replaced).To(Equal(0))
			Expect(echo.Len()).To(Equal(0))
			Expect(b.State()).To(Equal(Fresh))
		})

		It("Should rebuild and replace when the source is newer", func() {
			write(src, "package main // new\n", now)

			b := newBootstrapper(WithCompiler("sh", "-c", `cp "$3" "$2"`, "sh"))
			state, err := b.Rebuild(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(state).To(Equal(Replaced))

			Expect(replaced).To(Equal(1))
			Expect(gotExe).To(Equal(exe))
			Expect(gotArgv).To(Equal([]string{exe, "build", "--fast"}))
			Expect(gotEnv).To(Equal([]string{"A=1"}))

			content, err := os.ReadFile(exe)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(content)).To(Equal("package main // new\n"))

			lines := strings.Split(strings.TrimSpace(echo.String()), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(lines[0]).To(HavePrefix(`sh -c 'cp "$3" "$2"' sh -o `))
			Expect(lines[0]).To(HaveSuffix(" " + src))
			Expect(lines[1]).To(Equal(exe + " build --fast"))

			entries, err := os.ReadDir(td)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(3))
		})

		It("Should forward empty arguments unchanged", func() {
			write(src, "package main // new\n", now)

			argv := []string{exe, "", "x"}
			b := newBootstrapper(
				WithCompiler("sh", "-c", `cp "$3" "$2"`, "sh"),
				WithArgs(argv),
			)

			state, err := b.Rebuild(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(state).To(Equal(Replaced))
			Expect(b.State()).To(Equal(Replaced))
			Expect(replaced).To(Equal(1))
			Expect(gotArgv).To(Equal([]string{exe, "", "x"}))

			gotArgv[1] = "changed"
			Expect(argv[1]).To(Equal(""))

			lines := strings.Split(strings.TrimSpace(echo.String()), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(lines[1]).To(Equal(exe + " '' x"))
		})

		It("Should rebuild when a library is newer", func() {
			write(lib, "package cbs // new\n", now)

			b := newBootstrapper(WithCompiler("sh", "-c", `cp "$3" "$2"`, "sh"))
			state, err := b.Rebuild(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(state).To(Equal(Replaced))
			Expect(replaced).To(Equal(1))
		})

		It("Should leave the executable untouched when compiling fails", func() {
			write(src, "package main // broken\n", now)

			b := newBootstrapper(WithCompiler("sh", "-c", "exit 3", "sh"))
			state, err := b.Rebuild(context.Background())
			Expect(state).To(Equal(RecompileFailed))

			var rerr *RecompileError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Status).To(Equal(3))
			Expect(rerr.Source).To(Equal(src))
			Expect(err).To(MatchError(ContainSubstring("exited with status 3")))

			Expect(replaced).To(Equal(0))
			content, err := os.ReadFile(exe)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(content)).To(Equal("old binary"))

			entries, err := os.ReadDir(td)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(3))
		})

		It("Should fail when the compiler is missing", func() {
			write(src, "package main // new\n", now)

			b := newBootstrapper(WithCompiler("cbs-no-such-compiler"))
			state, err := b.Rebuild(context.Background())
			Expect(state).To(Equal(RecompileFailed))
			Expect(err).To(MatchError(model.ErrToolNotFound))
			Expect(replaced).To(Equal(0))
		})

		It("Should fail when the source does not exist", func() {
			b := newBootstrapper(WithSource(filepath.Join(td, "missing.go")))
			state, err := b.Rebuild(context.Background())
			Expect(state).To(Equal(RecompileFailed))
			Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
			Expect(replaced).To(Equal(0))
		})

		It("Should report replacement failures", func() {
			write(src, "package main // new\n", now)

			b := newBootstrapper(
				WithCompiler("sh", "-c", `cp "$3" "$2"`, "sh"),
				WithReplacer(func(string, []string, []string) error { return errors.New("exec failed") }),
			)

			state, err := b.Rebuild(context.Background())
			Expect(state).To(Equal(Replaced))
			Expect(err).To(MatchError(ContainSubstring("exec failed")))
		})
	})

	Describe("RecompileError", func() {
		It("Should describe signals", func() {
			err := &RecompileError{Source: "build.go", Status: model.ExitSignaled}
			Expect(err.Error()).To(Equal("compiling build.go failed: compiler terminated by signal"))
		})
	})
})
