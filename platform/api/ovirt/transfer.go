// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package ovirt

import (
	"fmt"

	"github.com/westonbelk/ovirt-iso-upload/util"
)

// Image transfer phases as reported by the engine. A transfer leaves
// initializing on its own; this client only ever signals pause and finalize.
const (
	TransferPhaseInitializing    = "initializing"
	TransferPhaseTransferring    = "transferring"
	TransferPhasePausedSystem    = "paused_system"
	TransferPhasePausedUser      = "paused_user"
	TransferPhaseFinishedSuccess = "finished_success"
	TransferPhaseFinishedFailure = "finished_failure"
)

// ImageTransfer mirrors the engine's image transfer resource, the
// authorization to stream bytes into a disk.
type ImageTransfer struct {
	ID          string `json:"id,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Direction   string `json:"direction,omitempty"`
	Format      string `json:"format,omitempty"`
	TransferURL string `json:"transfer_url,omitempty"`
	ProxyURL    string `json:"proxy_url,omitempty"`
	Disk        *Disk  `json:"disk,omitempty"`
}

// CreateImageTransfer starts an upload transfer session against the given
// disk. The session comes back in the initializing phase; its transfer URL
// is not usable until WaitForTransfer says so.
func (a *API) CreateImageTransfer(diskID string) (*ImageTransfer, error) {
	xfer := ImageTransfer{
		Direction: "upload",
		Format:    "raw",
		Disk:      &Disk{ID: diskID},
	}

	var created ImageTransfer
	if err := a.post("/imagetransfers", &xfer, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("engine returned an image transfer without an id")
	}
	return &created, nil
}

// WaitForTransfer polls the transfer until the engine moves it out of the
// initializing phase and returns it, transfer URL included. Whether the
// reached phase is usable is the caller's problem; a transfer that went
// straight to a failure phase simply carries no transfer URL.
func (a *API) WaitForTransfer(id string) (*ImageTransfer, error) {
	var xfer *ImageTransfer
	err := util.WaitUntilReady(a.opts.Timeout, pollInterval, func() (bool, error) {
		var t ImageTransfer
		if err := a.get("/imagetransfers/"+id, &t); err != nil {
			return false, err
		}
		plog.Debugf("Transfer %s phase: %s", id, t.Phase)
		if t.Phase == TransferPhaseInitializing {
			return false, nil
		}
		xfer = &t
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for transfer %s: %v", id, err)
	}
	return xfer, nil
}

// PauseTransfer tells the engine to suspend the session so it does not wait
// indefinitely for bytes that will never arrive. Called on failure paths.
func (a *API) PauseTransfer(id string) error {
	return a.post("/imagetransfers/"+id+"/pause", &struct{}{}, nil)
}

// FinalizeTransfer tells the engine the byte stream is complete and the disk
// should be verified and moved to ready. Only valid after a successful
// upload.
func (a *API) FinalizeTransfer(id string) error {
	return a.post("/imagetransfers/"+id+"/finalize", &struct{}{}, nil)
}
