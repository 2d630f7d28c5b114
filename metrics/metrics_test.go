// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	dto "github.com/prometheus/client_model/go"

	"github.com/choria-io/cbs/logging"
	"github.com/choria-io/cbs/model"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics")
}

var _ = Describe("Metrics", func() {
	Describe("StatusLabel", func() {
		It("Should label statuses", func() {
			Expect(StatusLabel(0)).To(Equal("0"))
			Expect(StatusLabel(2)).To(Equal("2"))
			Expect(StatusLabel(model.ExitSignaled)).To(Equal("signaled"))
		})
	})

	Describe("RegisterMetrics", func() {
		It("Should be safe to call more than once", func() {
			Expect(RegisterMetrics).ToNot(Panic())
			Expect(RegisterMetrics).ToNot(Panic())
		})
	})

	Describe("Collectors", func() {
		It("Should count exits by status", func() {
			counter := CommandExitCount.WithLabelValues("metrics-test", StatusLabel(model.ExitSignaled))
			counter.Inc()
			counter.Inc()

			m := &dto.Metric{}
			Expect(counter.Write(m)).To(Succeed())
			Expect(m.GetCounter().GetValue()).To(Equal(2.0))
		})
	})

	Describe("ListenAndServe", func() {
		It("Should start one server no matter how often it is called", func() {
			l, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).ToNot(HaveOccurred())
			port := l.Addr().(*net.TCPAddr).Port
			Expect(l.Close()).To(Succeed())

			RegisterMetrics()
			log := logging.Discard()

			Expect(func() {
				ListenAndServe(port, log)
				ListenAndServe(port, log)
				ListenAndServe(port+1, log)
			}).ToNot(Panic())

			Eventually(func() (string, error) {
				resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
				if err != nil {
					return "", err
				}
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				return string(body), err
			}).Should(ContainSubstring("choria_cbs_pool_jobs_enqueued_count"))
		})

		It("Should ignore disabled ports", func() {
			Expect(func() { ListenAndServe(0, logging.Discard()) }).ToNot(Panic())
		})
	})
})
