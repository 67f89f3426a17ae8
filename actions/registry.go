// Package actions holds the closed catalogue of known RPC actions: for
// each, the outbound request type, how to build its params, and the
// response type(s) that count as success.
package actions

import (
	"encoding/json"

	"testerpc/protocol"
	"testerpc/rpcerr"
)

// Request type names.
const (
	TypeLogin                = "login"
	TypeIsReady              = "isReady"
	TypeReactNativeReload    = "reactNativeReload"
	TypeDeliverPayload       = "deliverPayload"
	TypeSetSyncSettings      = "setSyncSettings"
	TypeShakeDevice          = "shakeDevice"
	TypeSetOrientation       = "setOrientation"
	TypeSetRecordingState    = "setRecordingState"
	TypeCaptureViewHierarchy = "captureViewHierarchy"
	TypeWaitForBackground    = "waitForBackground"
	TypeWaitForActive        = "waitForActive"
	TypeCleanup              = "cleanup"
	TypeCurrentStatus        = "currentStatus"
)

// Expected response type names.
const (
	RespLoginSuccess             = "loginSuccess"
	RespReady                    = "ready"
	RespDeliverPayloadDone       = "deliverPayloadDone"
	RespSetSyncSettingsDone      = "setSyncSettingsDone"
	RespShakeDeviceDone          = "shakeDeviceDone"
	RespSetOrientationDone       = "setOrientationDone"
	RespSetRecordingStateDone    = "setRecordingStateDone"
	RespCaptureViewHierarchyDone = "captureViewHierarchyDone"
	RespWaitForBackgroundDone    = "waitForBackgroundDone"
	RespWaitForActiveDone        = "waitForActiveDone"
	RespCleanupDone              = "cleanupDone"
	RespAppDisconnected          = "appDisconnected"
	RespCurrentStatusResult      = "currentStatusResult"
)

// Server-originated event type names (negative message IDs).
const (
	EventAppConnected              = "appConnected"
	EventAppNonresponsiveDetected  = "AppNonresponsiveDetected"
	EventAppWillTerminateWithError = "AppWillTerminateWithError"
)

// Conventional negative IDs server events arrive with. The client
// never assigns these itself; they only document the wire contract.
const (
	IDAppNonresponsiveDetected  = -10001
	IDAppWillTerminateWithError = -10000
)

// Action is one outbound request together with what counts as a
// matching response and how to turn that response into the caller's
// result.
type Action struct {
	// RequestType is the envelope's outbound `type`.
	RequestType string
	// Params is the pre-built request params, or nil.
	Params []byte
	// ExpectedTypes lists every response type that is NOT an error for
	// this action. A response whose type is absent from this set (and
	// isn't "error") raises UnexpectedResponseError.
	ExpectedTypes []string
	// Handle, if set, transforms a matching response envelope into the
	// caller's result. If nil, sendAction returns response.Params
	// unchanged.
	Handle func(protocol.Envelope) (interface{}, error)
}

// IsExpected reports whether respType is one of the action's accepted
// response types.
func (a Action) IsExpected(respType string) bool {
	for _, t := range a.ExpectedTypes {
		if t == respType {
			return true
		}
	}
	return false
}

func marshalParams(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Login builds the login action carrying the session ID.
func Login(sessionID string) Action {
	return Action{
		RequestType:   TypeLogin,
		Params:        marshalParams(map[string]string{"sessionId": sessionID}),
		ExpectedTypes: []string{RespLoginSuccess},
	}
}

// Ready builds the isReady liveness check.
func Ready() Action {
	return Action{RequestType: TypeIsReady, ExpectedTypes: []string{RespReady}}
}

// ReloadReactNative builds the reactNativeReload action.
func ReloadReactNative() Action {
	return Action{RequestType: TypeReactNativeReload, ExpectedTypes: []string{RespReady}}
}

// DeliverPayload builds a deliverPayload action with caller-supplied
// params.
func DeliverPayload(params interface{}) Action {
	return Action{
		RequestType:   TypeDeliverPayload,
		Params:        marshalParams(params),
		ExpectedTypes: []string{RespDeliverPayloadDone},
	}
}

// SetSyncSettings builds a setSyncSettings action.
func SetSyncSettings(params interface{}) Action {
	return Action{
		RequestType:   TypeSetSyncSettings,
		Params:        marshalParams(params),
		ExpectedTypes: []string{RespSetSyncSettingsDone},
	}
}

// Shake builds the shakeDevice action.
func Shake() Action {
	return Action{RequestType: TypeShakeDevice, ExpectedTypes: []string{RespShakeDeviceDone}}
}

// SetOrientation builds a setOrientation action.
func SetOrientation(params interface{}) Action {
	return Action{
		RequestType:   TypeSetOrientation,
		Params:        marshalParams(params),
		ExpectedTypes: []string{RespSetOrientationDone},
	}
}

// SetInstrumentsRecordingState builds a setRecordingState action.
func SetInstrumentsRecordingState(params interface{}) Action {
	return Action{
		RequestType:   TypeSetRecordingState,
		Params:        marshalParams(params),
		ExpectedTypes: []string{RespSetRecordingStateDone},
	}
}

type captureViewHierarchyParams struct {
	CaptureViewHierarchyError string `json:"captureViewHierarchyError,omitempty"`
}

// CaptureViewHierarchy builds the captureViewHierarchy action. Its
// response is only a success when params.captureViewHierarchyError is
// absent; otherwise Handle raises a DomainError carrying that message.
func CaptureViewHierarchy(params interface{}) Action {
	return Action{
		RequestType:   TypeCaptureViewHierarchy,
		Params:        marshalParams(params),
		ExpectedTypes: []string{RespCaptureViewHierarchyDone},
		Handle: func(resp protocol.Envelope) (interface{}, error) {
			var p captureViewHierarchyParams
			if len(resp.Params) > 0 {
				if err := json.Unmarshal(resp.Params, &p); err != nil {
					return nil, err
				}
			}
			if p.CaptureViewHierarchyError != "" {
				return nil, rpcerr.NewDomainError(p.CaptureViewHierarchyError)
			}
			return resp.Params, nil
		},
	}
}

// WaitForBackground builds the waitForBackground action.
func WaitForBackground() Action {
	return Action{RequestType: TypeWaitForBackground, ExpectedTypes: []string{RespWaitForBackgroundDone}}
}

// WaitForActive builds the waitForActive action.
func WaitForActive() Action {
	return Action{RequestType: TypeWaitForActive, ExpectedTypes: []string{RespWaitForActiveDone}}
}

// Cleanup builds the terminal cleanup action. permanent tells the app
// side whether the test runner itself is shutting down (true) or the
// session is merely being torn down between tests (false). Both
// cleanupDone and appDisconnected count as a successful
// acknowledgement.
func Cleanup(permanent bool) Action {
	return Action{
		RequestType:   TypeCleanup,
		Params:        marshalParams(map[string]bool{"permanent": permanent}),
		ExpectedTypes: []string{RespCleanupDone, RespAppDisconnected},
	}
}

// CurrentStatus builds the liveness-probe action. It never itself
// arms a probe timer — the client special-cases this action type.
func CurrentStatus() Action {
	return Action{RequestType: TypeCurrentStatus, ExpectedTypes: []string{RespCurrentStatusResult}}
}
