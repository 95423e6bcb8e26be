// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package ovirt

import (
	"fmt"
	"net/url"

	"github.com/westonbelk/ovirt-iso-upload/util"
)

// Disk statuses as reported by the engine. The engine owns this state
// machine; we only ever observe it.
const (
	DiskStatusOK      = "ok"
	DiskStatusLocked  = "locked"
	DiskStatusIllegal = "illegal"
)

// Disk mirrors the engine's disk resource. The engine's JSON encodes longs
// and booleans as strings, hence the ,string tags.
type Disk struct {
	ID              string          `json:"id,omitempty"`
	Name            string          `json:"name,omitempty"`
	Description     string          `json:"description,omitempty"`
	Status          string          `json:"status,omitempty"`
	Format          string          `json:"format,omitempty"`
	ContentType     string          `json:"content_type,omitempty"`
	Sparse          bool            `json:"sparse,string"`
	ProvisionedSize int64           `json:"provisioned_size,string,omitempty"`
	InitialSize     int64           `json:"initial_size,string,omitempty"`
	ActualSize      int64           `json:"actual_size,string,omitempty"`
	StorageDomains  *storageDomains `json:"storage_domains,omitempty"`
}

type storageDomains struct {
	StorageDomain []StorageDomain `json:"storage_domain"`
}

type StorageDomain struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type diskList struct {
	Disk []Disk `json:"disk"`
}

// GetDisksByName returns all disks on the engine whose name matches exactly.
func (a *API) GetDisksByName(name string) ([]Disk, error) {
	query := url.Values{"search": {fmt.Sprintf("name=%s", name)}}
	var list diskList
	if err := a.get("/disks?"+query.Encode(), &list); err != nil {
		return nil, err
	}
	return list.Disk, nil
}

// CreateDisk asks the engine to allocate a non-sparse raw disk tagged as ISO
// content, sized from the descriptor. The returned disk starts out locked;
// callers must WaitForDisk before using it.
func (a *API) CreateDisk(desc *DiskDescriptor) (*Disk, error) {
	disk := Disk{
		Name:            desc.Name,
		Description:     "uploaded by ovirt-iso-upload",
		Format:          "raw",
		ContentType:     "iso",
		Sparse:          false,
		ProvisionedSize: desc.VirtualSize,
		InitialSize:     desc.Size,
		StorageDomains: &storageDomains{
			StorageDomain: []StorageDomain{{Name: a.opts.StorageDomain}},
		},
	}

	var created Disk
	if err := a.post("/disks", &disk, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("engine returned a disk without an id")
	}
	return &created, nil
}

// WaitForDisk polls the disk until the engine reports it ok. A disk that
// turns illegal, or one still locked when the timeout expires, is an error.
func (a *API) WaitForDisk(id string) (*Disk, error) {
	var disk *Disk
	err := util.WaitUntilReady(a.opts.Timeout, pollInterval, func() (bool, error) {
		var d Disk
		if err := a.get("/disks/"+id, &d); err != nil {
			return false, err
		}
		plog.Debugf("Disk %s status: %s", id, d.Status)
		switch d.Status {
		case DiskStatusOK:
			disk = &d
			return true, nil
		case DiskStatusIllegal:
			return false, fmt.Errorf("disk %s entered illegal state", id)
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for disk %s: %v", id, err)
	}
	return disk, nil
}
