package client

import (
	"encoding/json"

	"testerpc/actions"
)

// WaitUntilReady blocks until the instrumented app reports ready.
func (c *Client) WaitUntilReady() error {
	_, err := c.sendAction(actions.Ready())
	return err
}

// ReloadReactNative triggers a JS bundle reload and waits for the app
// to report ready again.
func (c *Client) ReloadReactNative() error {
	_, err := c.sendAction(actions.ReloadReactNative())
	return err
}

// DeliverPayload sends an arbitrary payload to the app.
func (c *Client) DeliverPayload(params interface{}) error {
	_, err := c.sendAction(actions.DeliverPayload(params))
	return err
}

// SetSyncSettings updates the app's synchronization settings.
func (c *Client) SetSyncSettings(params interface{}) error {
	_, err := c.sendAction(actions.SetSyncSettings(params))
	return err
}

// Shake simulates a shake gesture on the device.
func (c *Client) Shake() error {
	_, err := c.sendAction(actions.Shake())
	return err
}

// SetOrientation rotates the device/simulator.
func (c *Client) SetOrientation(params interface{}) error {
	_, err := c.sendAction(actions.SetOrientation(params))
	return err
}

type recordingStateParams struct {
	Recording bool        `json:"recording"`
	Params    interface{} `json:"params,omitempty"`
}

// StartInstrumentsRecording begins an instruments recording session.
func (c *Client) StartInstrumentsRecording(params interface{}) error {
	_, err := c.sendAction(actions.SetInstrumentsRecordingState(recordingStateParams{Recording: true, Params: params}))
	return err
}

// StopInstrumentsRecording ends an instruments recording session.
func (c *Client) StopInstrumentsRecording() error {
	_, err := c.sendAction(actions.SetInstrumentsRecordingState(recordingStateParams{Recording: false}))
	return err
}

// CaptureViewHierarchy fetches a snapshot of the app's view hierarchy.
// Returns a DomainError if the app reports a capture failure.
func (c *Client) CaptureViewHierarchy(params interface{}) ([]byte, error) {
	res, err := c.sendAction(actions.CaptureViewHierarchy(params))
	if err != nil {
		return nil, err
	}
	raw, _ := res.(json.RawMessage)
	return []byte(raw), nil
}

// WaitForBackground blocks until the app reports it has backgrounded.
func (c *Client) WaitForBackground() error {
	_, err := c.sendAction(actions.WaitForBackground())
	return err
}

// WaitForActive blocks until the app reports it is active again.
func (c *Client) WaitForActive() error {
	_, err := c.sendAction(actions.WaitForActive())
	return err
}

// CurrentStatus issues a liveness probe on demand, outside of the
// automatic scheduler.
func (c *Client) CurrentStatus() ([]byte, error) {
	res, err := c.sendAction(actions.CurrentStatus())
	if err != nil {
		return nil, err
	}
	raw, _ := res.(json.RawMessage)
	return []byte(raw), nil
}
