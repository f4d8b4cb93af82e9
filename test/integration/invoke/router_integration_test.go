// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

//go:build integration

package invoke_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/Choochmeque/crosscall/internal/bridge"
	"github.com/Choochmeque/crosscall/internal/builtin"
	"github.com/Choochmeque/crosscall/internal/control"
	"github.com/Choochmeque/crosscall/internal/plugin"
	"github.com/Choochmeque/crosscall/internal/plugin/lua"
)

const counterManifest = `name: counter
version: 1.0.0
type: lua
config: '{"step":2}'
lua-plugin:
  entry: main.lua
`

const counterScript = `
commands = {
  bump = function(call)
    call.resolve("bumped: " .. call.data)
  end,
  chunks = function(call)
    call.send(1, "a")
    call.send(1, "b")
    call.resolve()
  end,
}
`

var _ = Describe("Router Integration", func() {
	var (
		rt         *bridge.Runtime
		server     *control.Server
		client     *control.Client
		socketDir  string
		pluginsDir string
	)

	BeforeEach(func() {
		var err error

		pluginsDir, err = os.MkdirTemp("", "plugins")
		Expect(err).NotTo(HaveOccurred())
		counterDir := filepath.Join(pluginsDir, "counter")
		Expect(os.MkdirAll(counterDir, 0o700)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(counterDir, "plugin.yaml"), []byte(counterManifest), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(counterDir, "main.lua"), []byte(counterScript), 0o600)).To(Succeed())

		rt, err = bridge.NewRuntime()
		Expect(err).NotTo(HaveOccurred())
		Expect(rt.RegisterPlugin(builtin.EchoName, builtin.NewEcho(), "", nil)).To(Succeed())

		manager := plugin.NewManager(pluginsDir, plugin.WithHost(plugin.TypeLua, lua.NewHost()))
		Expect(manager.LoadAll(context.Background(), rt)).To(Succeed())
		Expect(manager.Loaded()).To(Equal([]string{"counter"}))

		socketDir, err = os.MkdirTemp("", "sock")
		Expect(err).NotTo(HaveOccurred())
		server = control.NewServer(rt, filepath.Join(socketDir, "r.sock"), nil)
		Expect(server.Start()).To(Succeed())
		client = control.NewClient(server.SocketPath())
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(server.Stop(ctx)).To(Succeed())
		rt.Close()
		Expect(os.RemoveAll(socketDir)).To(Succeed())
		Expect(os.RemoveAll(pluginsDir)).To(Succeed())
	})

	Describe("builtin plugin over the control socket", func() {
		It("round-trips a synchronous command", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 1, Plugin: builtin.EchoName, Command: "ping",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeTrue())
			Expect(*resp.Payload).To(Equal("pong"))
		})

		It("delivers an async command's payload", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 2, Plugin: builtin.EchoName, Command: "delay", Data: "later",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeTrue())
			Expect(*resp.Payload).To(Equal("later"))
		})

		It("reports errors with the error tag", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 3, Plugin: builtin.EchoName, Command: "fail", Data: "boom",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeFalse())
			Expect(*resp.Payload).To(Equal("echo failure: boom"))
		})
	})

	Describe("lua plugin loaded from a manifest", func() {
		It("executes a scripted command", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 4, Plugin: "counter", Command: "bump", Data: "7",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeTrue())
			Expect(*resp.Payload).To(Equal("bumped: 7"))
		})

		It("accumulates channel data into the reply", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 5, Plugin: "counter", Command: "chunks",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.Channel).To(HaveKeyWithValue(uint64(1), []string{"a", "b"}))
		})

		It("lists a command directory for unknown commands", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 6, Plugin: "counter", Command: "nope",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeFalse())
			Expect(*resp.Payload).To(ContainSubstring("No command nope found for plugin counter."))
			Expect(*resp.Payload).To(ContainSubstring("bump(invocation) -> error"))
		})
	})

	Describe("registry introspection", func() {
		It("lists registered plugins and their commands", func() {
			infos, err := client.Plugins(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(infos).To(HaveLen(2))
			Expect(infos[0].Name).To(Equal("counter"))
			Expect(infos[1].Name).To(Equal(builtin.EchoName))
		})
	})

	Describe("unknown plugin", func() {
		It("rejects with the not-initialized message", func() {
			resp, err := client.Invoke(context.Background(), control.InvokeRequest{
				ID: 7, Plugin: "ghost", Command: "ping",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Success).To(BeFalse())
			Expect(*resp.Payload).To(Equal("Plugin ghost not initialized"))
		})
	})
})
