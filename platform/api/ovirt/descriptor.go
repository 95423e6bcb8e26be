// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package ovirt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/westonbelk/ovirt-iso-upload/util"
)

// DiskDescriptor captures everything about a local image the engine needs to
// size the remote disk. It is built once, before any remote call, and stays
// read-only afterwards.
type DiskDescriptor struct {
	Path string
	// Name identifies the remote disk; the image's basename.
	Name string
	// Size is the exact byte length of the local file and becomes the
	// upload's Content-Length.
	Size int64
	// VirtualSize is the provisioned size reported by format inspection.
	// Never smaller than Size.
	VirtualSize int64
	Format      string
}

// DescribeImage validates the image at path and builds its descriptor.
// Only raw-format files carrying an ISO 9660 volume descriptor are accepted;
// anything else is rejected here, before the engine is ever contacted.
func DescribeImage(path string) (*DiskDescriptor, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%q is not a regular file", path)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%q is empty", path)
	}

	info, err := util.GetImageInfo(path)
	if err != nil {
		return nil, fmt.Errorf("could not inspect %q: %v", path, err)
	}
	if info.Format != "raw" {
		return nil, fmt.Errorf("%q has format %q, only raw ISO images can be uploaded", path, info.Format)
	}

	if err := util.VerifyISO(path); err != nil {
		return nil, err
	}

	virtual := int64(info.VirtualSize)
	if virtual < fi.Size() {
		virtual = fi.Size()
	}

	return &DiskDescriptor{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        fi.Size(),
		VirtualSize: virtual,
		Format:      info.Format,
	}, nil
}
