// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"strings"

	"github.com/samber/oops"
)

// Error codes for dispatch failures.
const (
	CodePluginNotFound  = "PLUGIN_NOT_FOUND"
	CodeCommandNotFound = "COMMAND_NOT_FOUND"
	CodeHandlerError    = "HANDLER_ERROR"
	CodeInvalidBinding  = "INVALID_BINDING"
	CodeDispatchClosed  = "DISPATCH_CLOSED"
	// CodeProtocolMisuse marks a handler sending more than one terminal
	// response. The duplicate is dropped, never delivered.
	CodeProtocolMisuse = "PROTOCOL_MISUSE"
)

// ErrPluginNotFound creates an error for a plugin name absent from the
// registry.
func ErrPluginNotFound(name string) error {
	return oops.Code(CodePluginNotFound).
		With("plugin", name).
		Errorf("plugin %s not registered", name)
}

// ErrCommandNotFound creates an error for a command no convention matches,
// carrying the plugin's command directory for diagnostics.
func ErrCommandNotFound(plugin, command string, directory []string) error {
	return oops.Code(CodeCommandNotFound).
		With("plugin", plugin).
		With("command", command).
		With("directory", directory).
		Errorf("no command %s on plugin %s", command, plugin)
}

// ErrHandlerError wraps a failure signaled by the matched handler itself.
func ErrHandlerError(plugin, command string, cause error) error {
	return oops.Code(CodeHandlerError).
		With("plugin", plugin).
		With("command", command).
		Wrap(cause)
}

// WireMessage renders the human-readable string delivered to the caller on
// the error tag for a recognized dispatch error. Unrecognized errors fall
// back to their Error string.
func WireMessage(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return err.Error()
	}

	ctx := oopsErr.Context()
	switch oopsErr.Code() {
	case CodePluginNotFound:
		name, _ := ctx["plugin"].(string)
		return "Plugin " + name + " not initialized"
	case CodeCommandNotFound:
		plugin, _ := ctx["plugin"].(string)
		command, _ := ctx["command"].(string)
		directory, _ := ctx["directory"].([]string)
		var sb strings.Builder
		sb.WriteString("No command ")
		sb.WriteString(command)
		sb.WriteString(" found for plugin ")
		sb.WriteString(plugin)
		sb.WriteString(".\nAvailable commands:\n")
		sb.WriteString(strings.Join(directory, "\n"))
		return sb.String()
	default:
		return err.Error()
	}
}
