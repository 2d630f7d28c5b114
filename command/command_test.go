// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCommand(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Command")
}

var _ = Describe("Command", func() {
	Describe("Append", func() {
		It("Should start empty", func() {
			c := &Command{}
			Expect(c.Len()).To(Equal(0))
			Expect(c.Cap()).To(Equal(0))
			Expect(c.Args()).To(BeEmpty())
			Expect(c.Argv()).To(BeNil())
			Expect(c.Name()).To(Equal(""))
		})

		It("Should keep length, capacity and terminator consistent", func() {
			for _, batches := range [][]int{{1}, {1, 1, 1}, {3, 5, 7}, {10}, {2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}} {
				c := &Command{}
				total := 0

				for _, size := range batches {
					var items []string
					for i := range size {
						items = append(items, fmt.Sprintf("arg%d", total+i))
					}
					Expect(c.Append(items...)).To(Succeed())
					total += size

					Expect(c.Len()).To(Equal(total))
					Expect(c.Cap()).To(BeNumerically(">", total))
					Expect(c.Argv()).To(HaveLen(total + 1))
					Expect(c.Argv()[total]).To(Equal(Terminator))
				}

				for i, arg := range c.Args() {
					Expect(arg).To(Equal(fmt.Sprintf("arg%d", i)))
				}
			}
		})

		It("Should grow capacity by doubling plus headroom", func() {
			c := &Command{}
			Expect(c.Append("a")).To(Succeed())
			Expect(c.Cap()).To(Equal(2))
			Expect(c.Append("b")).To(Succeed())
			Expect(c.Cap()).To(Equal(6))
			Expect(c.Append("c", "d", "e")).To(Succeed())
			Expect(c.Cap()).To(Equal(6))
			Expect(c.Append("f")).To(Succeed())
			Expect(c.Cap()).To(Equal(14))
		})

		It("Should reject empty arguments and leave the command unchanged", func() {
			c, err := New("cc", "-o")
			Expect(err).ToNot(HaveOccurred())

			err = c.Append("main", "", "main.c")
			Expect(err).To(MatchError(ErrEmptyArgument))
			Expect(c.Args()).To(Equal([]string{"cc", "-o"}))

			_, err = New("")
			Expect(err).To(MatchError(ErrEmptyArgument))
		})

		It("Should support appending nothing", func() {
			c := &Command{}
			Expect(c.Append()).To(Succeed())
			Expect(c.Cap()).To(Equal(0))
		})

		It("Should not let callers clobber the terminator through Args", func() {
			c, err := New("cc")
			Expect(err).ToNot(HaveOccurred())

			args := c.Args()
			_ = append(args, "sneaky")
			Expect(c.Argv()[1]).To(Equal(Terminator))
		})
	})

	Describe("Clear", func() {
		It("Should reset length but keep capacity", func() {
			c, err := New("cc", "-o", "main", "main.c")
			Expect(err).ToNot(HaveOccurred())
			capacity := c.Cap()

			c.Clear()
			Expect(c.Len()).To(Equal(0))
			Expect(c.Cap()).To(Equal(capacity))
			Expect(c.Argv()).To(Equal([]string{Terminator}))

			Expect(c.Append("ls")).To(Succeed())
			Expect(c.Args()).To(Equal([]string{"ls"}))
			Expect(c.Argv()).To(Equal([]string{"ls", Terminator}))
			Expect(c.Cap()).To(Equal(capacity))
		})
	})

	Describe("Release", func() {
		It("Should drop storage", func() {
			c, err := New("cc")
			Expect(err).ToNot(HaveOccurred())
			c.Release()
			Expect(c.Len()).To(Equal(0))
			Expect(c.Cap()).To(Equal(0))
			Expect(c.Argv()).To(BeNil())
		})
	})

	Describe("Clone", func() {
		It("Should create an independent copy", func() {
			c, err := New("cc", "-c")
			Expect(err).ToNot(HaveOccurred())

			nc := c.Clone()
			Expect(nc.Append("a.c")).To(Succeed())
			Expect(c.Args()).To(Equal([]string{"cc", "-c"}))
			Expect(nc.Args()).To(Equal([]string{"cc", "-c", "a.c"}))
		})

		It("Should clone nil and empty commands", func() {
			var c *Command
			Expect(c.Clone().Len()).To(Equal(0))
			Expect((&Command{}).Clone().Cap()).To(Equal(0))
		})
	})

	Describe("Print", func() {
		It("Should emit safe arguments verbatim", func() {
			c, err := New("cc", "-O2", "-o", "out/main", "--std=c11", "a,b:c@d%e+f")
			Expect(err).ToNot(HaveOccurred())
			Expect(c.String()).To(Equal("cc -O2 -o out/main --std=c11 a,b:c@d%e+f"))
		})

		It("Should single quote unsafe arguments", func() {
			c, err := New("echo", "hello world", "it's", "$HOME", "a;b")
			Expect(err).ToNot(HaveOccurred())
			Expect(c.String()).To(Equal(`echo 'hello world' 'it'"'"'s' '$HOME' 'a;b'`))
		})

		It("Should write a line", func() {
			c, err := New("cc", "main.c")
			Expect(err).ToNot(HaveOccurred())

			buf := bytes.NewBuffer(nil)
			Expect(c.Print(buf)).To(Succeed())
			Expect(buf.String()).To(Equal("cc main.c\n"))
		})

		It("Should print nothing for empty commands", func() {
			buf := bytes.NewBuffer(nil)
			Expect((&Command{}).Print(buf)).To(Succeed())
			Expect(buf.Len()).To(Equal(0))
		})
	})
})
