package client

import (
	"goa.design/utcp/pkg/kindregistry"
	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/protocol/cliproto"
	"goa.design/utcp/pkg/protocol/directproto"
	"goa.design/utcp/pkg/protocol/httpproto"
	"goa.design/utcp/pkg/protocol/mcpproto"
	"goa.design/utcp/pkg/protocol/textproto"
	"goa.design/utcp/pkg/telemetry"
	"goa.design/utcp/pkg/utcptypes"
)

// protocolGuard ensures the seven built-in call-template kinds are
// registered into protocol.Kinds exactly once per process. Living here
// rather than inside pkg/protocol itself avoids an import cycle: every
// protocol subpackage already imports pkg/protocol for its shared types.
var protocolGuard kindregistry.Guard

// bootstrapProtocols installs the built-in protocol kinds. Only the first
// call's logger is actually wired in; later calls (e.g. a second Create in
// the same process) are no-ops, matching every other Bootstrap in this
// module.
func bootstrapProtocols(logger telemetry.Logger) {
	protocolGuard.Do(func() {
		protocol.Kinds.Register(string(utcptypes.CallTemplateHTTP), func() (protocol.Protocol, error) {
			return httpproto.NewHTTPProtocol(logger), nil
		}, false)
		protocol.Kinds.Register(string(utcptypes.CallTemplateStreamableHTTP), func() (protocol.Protocol, error) {
			return httpproto.NewStreamableHTTPProtocol(), nil
		}, false)
		protocol.Kinds.Register(string(utcptypes.CallTemplateSSE), func() (protocol.Protocol, error) {
			return httpproto.NewSSEProtocol(), nil
		}, false)
		protocol.Kinds.Register(string(utcptypes.CallTemplateMCP), func() (protocol.Protocol, error) {
			return mcpproto.NewMCPProtocol(), nil
		}, false)
		protocol.Kinds.Register(string(utcptypes.CallTemplateCLI), func() (protocol.Protocol, error) {
			return cliproto.NewCLIProtocol(logger), nil
		}, false)
		protocol.Kinds.Register(string(utcptypes.CallTemplateText), func() (protocol.Protocol, error) {
			return textproto.NewTextProtocol(), nil
		}, false)
		protocol.Kinds.Register(string(utcptypes.CallTemplateDirect), func() (protocol.Protocol, error) {
			return directproto.NewDirectProtocol(), nil
		}, false)
	})
}
