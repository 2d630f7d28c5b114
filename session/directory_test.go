// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/cbs/model"
	"github.com/choria-io/cbs/model/modelmocks"
)

var _ = Describe("DirectorySessionStore", func() {
	var (
		mockCtrl *gomock.Controller
		logger   *modelmocks.MockLogger
		tempDir  string
		store    *DirectorySessionStore
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		logger = modelmocks.NewLogger(mockCtrl)

		tempDir = filepath.Join(GinkgoT().TempDir(), "session")

		var err error
		store, err = NewDirectorySessionStore(tempDir, logger)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Describe("NewDirectorySessionStore", func() {
		It("Should require a directory", func() {
			_, err := NewDirectorySessionStore("", logger)
			Expect(err).To(MatchError("session directory path cannot be empty"))
		})

		It("Should create an absolute path from relative directory", func() {
			relStore, err := NewDirectorySessionStore("./relative/path", logger)
			Expect(err).ToNot(HaveOccurred())
			Expect(filepath.IsAbs(relStore.Directory())).To(BeTrue())
		})

		It("Should clean the directory path", func() {
			dirtyStore, err := NewDirectorySessionStore("/some//path/../clean/./path", logger)
			Expect(err).ToNot(HaveOccurred())
			Expect(dirtyStore.Directory()).To(Equal("/some/clean/path"))
		})
	})

	Describe("StartSession", func() {
		It("Should create the directory and record a start event", func() {
			Expect(tempDir).ToNot(BeADirectory())
			Expect(store.StartSession()).To(Succeed())
			Expect(tempDir).To(BeADirectory())

			entries, err := os.ReadDir(tempDir)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))

			data, err := os.ReadFile(filepath.Join(tempDir, entries[0].Name()))
			Expect(err).ToNot(HaveOccurred())

			var start model.SessionStartEvent
			Expect(json.Unmarshal(data, &start)).To(Succeed())
			Expect(start.Protocol).To(Equal(model.SessionStartEventProtocol))
		})
	})

	Describe("RecordEvent", func() {
		It("Should fail when the session was not started", func() {
			err := store.RecordEvent(execEvent("cc", 0, 0))
			Expect(err).To(MatchError(ContainSubstring("does not exist")))
		})

		It("Should reject invalid event ids", func() {
			Expect(store.StartSession()).To(Succeed())

			event := execEvent("cc", 0, 0)
			event.EventID = "../../etc/passwd"
			Expect(store.RecordEvent(event)).To(MatchError(ContainSubstring("invalid event ID")))
		})

		It("Should write one file per event", func() {
			Expect(store.StartSession()).To(Succeed())
			event := execEvent("cc -o main main.c", 2, time.Second)
			Expect(store.RecordEvent(event)).To(Succeed())

			Expect(filepath.Join(tempDir, event.EventID+".event")).To(BeARegularFile())
		})
	})

	Describe("AllEvents", func() {
		It("Should return no events for a missing directory", func() {
			events, err := store.AllEvents()
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		It("Should read back events in time order and skip unknown files", func() {
			Expect(store.StartSession()).To(Succeed())

			first := execEvent("first", 0, time.Second)
			first.TimeStamp = time.Now().Add(time.Minute).UTC()
			second := execEvent("second", 1, time.Second)
			second.TimeStamp = time.Now().Add(2 * time.Minute).UTC()

			Expect(store.RecordEvent(second)).To(Succeed())
			Expect(store.RecordEvent(first)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(tempDir, "junk.event"), []byte(`{"protocol":"x"}`), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("hello"), 0644)).To(Succeed())

			events, err := store.AllEvents()
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(3))
			Expect(events[0]).To(BeAssignableToTypeOf(&model.SessionStartEvent{}))
			Expect(events[1].(*model.ExecEvent).Command).To(Equal("first"))
			Expect(events[2].(*model.ExecEvent).Command).To(Equal("second"))
			Expect(events[2].(*model.ExecEvent).Status).To(Equal(1))
		})
	})

	Describe("StopSession", func() {
		It("Should summarize and optionally remove the directory", func() {
			Expect(store.StartSession()).To(Succeed())
			Expect(store.RecordEvent(execEvent("cc", 0, time.Second))).To(Succeed())
			Expect(store.RecordEvent(execEvent("ld", 3, time.Second))).To(Succeed())

			summary, err := store.StopSession(false)
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.TotalCommands).To(Equal(2))
			Expect(summary.FailedCommands).To(Equal(1))
			Expect(tempDir).To(BeADirectory())

			_, err = store.StopSession(true)
			Expect(err).ToNot(HaveOccurred())
			Expect(tempDir).ToNot(BeADirectory())
		})
	})

	Describe("ParseEvent", func() {
		It("Should fail for invalid data", func() {
			_, err := ParseEvent([]byte("{"))
			Expect(err).To(HaveOccurred())

			_, err = ParseEvent([]byte(`{"protocol":"other"}`))
			Expect(err).To(MatchError(ContainSubstring("unknown event protocol")))
		})
	})
})
