// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// isoSignatureOffset is where an ISO 9660 primary volume descriptor starts:
// 16 sectors of 2048 bytes reserved for boot data.
const isoSignatureOffset = 0x8000

// isoSignature is the first 8 bytes of a primary volume descriptor:
// type 1, magic "CD001", version 1, padding.
var isoSignature = []byte{0x01, 'C', 'D', '0', '0', '1', 0x01, 0x00}

type ImageInfo struct {
	Format      string `json:"format"`
	VirtualSize uint64 `json:"virtual-size"`
}

// GetImageInfo inspects the disk image at path with qemu-img, reporting
// its container format and virtual size.
func GetImageInfo(path string) (*ImageInfo, error) {
	cmd := exec.Command("qemu-img", "info", "--output=json", path)
	plog.Debugf("Running: %s", shellquote.Join(cmd.Args...))
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var info ImageInfo
	err = json.Unmarshal(out, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// VerifyISO checks that the file at path carries an ISO 9660 primary volume
// descriptor, i.e. that it really is an ISO image and not some other raw
// blob. Returns nil only when the signature matches exactly.
func VerifyISO(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sig := make([]byte, len(isoSignature))
	if _, err := f.ReadAt(sig, isoSignatureOffset); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%q is too small to contain an ISO 9660 volume descriptor", path)
		}
		return err
	}

	if !bytes.Equal(sig, isoSignature) {
		return fmt.Errorf("%q is not an ISO 9660 image: bad volume descriptor signature", path)
	}
	return nil
}
