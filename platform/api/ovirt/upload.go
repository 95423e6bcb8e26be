// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package ovirt

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/coreos/ioprogress"

	"github.com/westonbelk/ovirt-iso-upload/util"
)

// ErrUploadDeclined is returned when disks with the same name already exist
// and the caller declined to continue.
var ErrUploadDeclined = errors.New("upload declined, disks with the same name already exist")

// ConfirmFunc decides whether to continue when disks named like the image
// already exist on the engine. Continuing never touches the existing disks.
type ConfirmFunc func(existing []Disk) (bool, error)

// UploadISO drives the whole transfer: duplicate check, disk creation,
// transfer session negotiation, byte streaming, finalize. On any failure
// after the session exists it pauses the session (best effort, exactly once)
// so the engine does not wait forever, then reports the original error.
// Returns the new disk's id.
func (a *API) UploadISO(desc *DiskDescriptor, confirm ConfirmFunc) (string, error) {
	existing, err := a.GetDisksByName(desc.Name)
	if err != nil {
		return "", fmt.Errorf("could not search for existing disks: %v", err)
	}
	if len(existing) > 0 {
		ok := false
		if confirm != nil {
			if ok, err = confirm(existing); err != nil {
				return "", err
			}
		}
		if !ok {
			return "", ErrUploadDeclined
		}
	}

	plog.Noticef("Creating disk %q (%s) on storage domain %q",
		desc.Name, ioprogress.ByteUnitStr(desc.Size), a.opts.StorageDomain)
	disk, err := a.CreateDisk(desc)
	if err != nil {
		return "", fmt.Errorf("could not create disk: %v", err)
	}
	if _, err := a.WaitForDisk(disk.ID); err != nil {
		return "", err
	}

	xfer, err := a.CreateImageTransfer(disk.ID)
	if err != nil {
		return "", fmt.Errorf("could not create image transfer: %v", err)
	}

	ready, err := a.WaitForTransfer(xfer.ID)
	if err != nil {
		a.pauseBestEffort(xfer.ID)
		return "", err
	}
	if ready.TransferURL == "" {
		a.pauseBestEffort(xfer.ID)
		return "", fmt.Errorf("engine offered no direct transfer URL for transfer %s (phase %s)", xfer.ID, ready.Phase)
	}

	if err := a.uploadFile(ready.TransferURL, desc); err != nil {
		a.pauseBestEffort(xfer.ID)
		return "", err
	}

	if err := a.FinalizeTransfer(xfer.ID); err != nil {
		return "", fmt.Errorf("could not finalize transfer %s: %v", xfer.ID, err)
	}

	return disk.ID, nil
}

// uploadFile streams the image to the transfer URL with a single HTTPS PUT,
// Content-Length set to the exact file size. Chunking and progress live in
// util.ChunkedCopier; the pipe keeps them under our control instead of the
// transport's.
func (a *API) uploadFile(transferURL string, desc *DiskDescriptor) error {
	f, err := os.Open(desc.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	req, err := http.NewRequest(http.MethodPut, transferURL, pr)
	if err != nil {
		return err
	}
	req.ContentLength = desc.Size
	req.Header.Set("Content-Type", "application/octet-stream")

	copyErr := make(chan error, 1)
	go func() {
		_, err := util.NewChunkedCopier().Copy(pw, f, desc.Size)
		pw.CloseWithError(err)
		copyErr <- err
	}()

	start := time.Now()
	resp, doErr := a.client.Do(req)
	cerr := <-copyErr
	if doErr != nil {
		// The transport reports our own pipe error; the local cause
		// is the one worth surfacing.
		if cerr != nil {
			return cerr
		}
		return fmt.Errorf("image transfer failed: %v", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(reason) > 0 {
			return fmt.Errorf("image transfer rejected: %s: %s", resp.Status, reason)
		}
		return fmt.Errorf("image transfer rejected: %s", resp.Status)
	}
	if cerr != nil {
		return cerr
	}

	elapsed := time.Since(start)
	seconds := elapsed.Seconds()
	if seconds < 0.001 {
		seconds = 0.001
	}
	rate := int64(float64(desc.Size) / seconds)
	plog.Noticef("Transferred %s in %v (%s/s)",
		ioprogress.ByteUnitStr(desc.Size), elapsed.Round(time.Second), ioprogress.ByteUnitStr(rate))
	return nil
}

func (a *API) pauseBestEffort(id string) {
	if err := a.PauseTransfer(id); err != nil {
		plog.Errorf("Could not pause transfer %s: %v", id, err)
	}
}
