// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"golang.org/x/term"
)

const OVirtConfigPath = ".config/ovirt.json"

// OVirtProfile represents a parsed oVirt engine profile.
type OVirtProfile struct {
	Engine        string `json:"engine"`
	Username      string `json:"username"`
	Password      string `json:"password,omitempty"`
	CAFile        string `json:"cafile,omitempty"`
	Insecure      bool   `json:"insecure,omitempty"`
	StorageDomain string `json:"storage_domain,omitempty"`
}

// ReadOVirtConfig decodes an oVirt config file, a map of profile names to
// engine connection details.
//
// If path is empty, $HOME/.config/ovirt.json is read.
func ReadOVirtConfig(path string) (map[string]OVirtProfile, error) {
	if path == "" {
		user, err := user.Current()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(user.HomeDir, OVirtConfigPath)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var profiles map[string]OVirtProfile
	if err := json.NewDecoder(f).Decode(&profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("oVirt config %q contains no profiles", path)
	}

	return profiles, nil
}

// PromptPassword reads a password from the controlling terminal without
// echoing it. Used when a profile omits the password field.
func PromptPassword(username string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no password configured for %q and stdin is not a terminal", username)
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}
