// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package ovirt

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/coreos/pkg/capnslog"

	"github.com/westonbelk/ovirt-iso-upload/auth"
)

const pollInterval = time.Second

var plog = capnslog.NewPackageLogger("github.com/westonbelk/ovirt-iso-upload", "platform/api/ovirt")

type Options struct {
	ConfigPath string
	Profile    string

	// Engine is the base URL of the engine, e.g.
	// https://engine.example.com/ovirt-engine
	Engine        string
	Username      string
	Password      string
	CAFile        string
	Insecure      bool
	StorageDomain string

	// Timeout bounds each wait for the engine to move a disk or an image
	// transfer out of its transient state.
	Timeout time.Duration
}

type API struct {
	opts   *Options
	base   string
	client *http.Client
	token  string
}

// New authenticates against the engine's SSO endpoint and returns a client
// holding the resulting bearer token. Options left empty are filled from the
// selected profile in the oVirt config file.
func New(opts *Options) (*API, error) {
	if err := setOptsFromProfile(opts); err != nil {
		return nil, err
	}

	if opts.Engine == "" {
		return nil, fmt.Errorf("no engine URL configured")
	}
	if opts.StorageDomain == "" {
		return nil, fmt.Errorf("no storage domain configured")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}

	if opts.Password == "" {
		password, err := auth.PromptPassword(opts.Username)
		if err != nil {
			return nil, err
		}
		opts.Password = password
	}

	tlsConfig := &tls.Config{}
	if opts.Insecure {
		tlsConfig.InsecureSkipVerify = true
	} else if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("could not read CA file: %v", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %q", opts.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	a := &API{
		opts: opts,
		base: strings.TrimRight(opts.Engine, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: tlsConfig,
			},
		},
	}

	if err := a.login(); err != nil {
		return nil, err
	}

	return a, nil
}

func setOptsFromProfile(opts *Options) error {
	profiles, err := auth.ReadOVirtConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("couldn't read oVirt config: %v", err)
	}

	name := opts.Profile
	if name == "" {
		name = "default"
	}
	profile, ok := profiles[name]
	if !ok {
		return fmt.Errorf("oVirt profile %q doesn't exist", name)
	}

	if opts.Engine == "" {
		opts.Engine = profile.Engine
	}
	if opts.Username == "" {
		opts.Username = profile.Username
	}
	if opts.Password == "" {
		opts.Password = profile.Password
	}
	if opts.CAFile == "" {
		opts.CAFile = profile.CAFile
	}
	if !opts.Insecure {
		opts.Insecure = profile.Insecure
	}
	if opts.StorageDomain == "" {
		opts.StorageDomain = profile.StorageDomain
	}

	return nil
}

type ssoToken struct {
	AccessToken string `json:"access_token"`
	ErrorCode   string `json:"error_code"`
	ErrorDetail string `json:"error_description"`
}

func (a *API) login() error {
	form := url.Values{
		"grant_type": {"password"},
		"scope":      {"ovirt-app-api"},
		"username":   {a.opts.Username},
		"password":   {a.opts.Password},
	}

	req, err := http.NewRequest(http.MethodPost, a.base+"/sso/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach engine SSO: %v", err)
	}
	defer resp.Body.Close()

	var token ssoToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("could not decode SSO response: %v", err)
	}
	if token.AccessToken == "" {
		if token.ErrorDetail != "" {
			return fmt.Errorf("authentication failed: %s", token.ErrorDetail)
		}
		return fmt.Errorf("authentication failed: %s", resp.Status)
	}

	a.token = token.AccessToken
	return nil
}

// Close revokes the SSO token (best effort) and drops idle connections.
func (a *API) Close() {
	form := url.Values{"token": {a.token}}
	req, err := http.NewRequest(http.MethodPost, a.base+"/services/sso-logout",
		strings.NewReader(form.Encode()))
	if err == nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		if resp, err := a.client.Do(req); err == nil {
			resp.Body.Close()
		} else {
			plog.Debugf("SSO logout failed: %v", err)
		}
	}
	a.client.CloseIdleConnections()
}

type productInfo struct {
	ProductInfo struct {
		Name    string `json:"name"`
		Version struct {
			FullVersion string `json:"full_version"`
		} `json:"version"`
	} `json:"product_info"`
}

// PreflightCheck verifies that the API accepts our token and that the
// engine is new enough to offer image transfers.
func (a *API) PreflightCheck() error {
	var info productInfo
	if err := a.get("", &info); err != nil {
		return err
	}

	full := info.ProductInfo.Version.FullVersion
	if full == "" {
		return fmt.Errorf("engine did not report a version")
	}
	// Trim any dist suffix like "4.5.4-1.el8".
	ver, err := semver.NewVersion(strings.SplitN(full, "-", 2)[0])
	if err != nil {
		return fmt.Errorf("could not parse engine version %q: %v", full, err)
	}
	if ver.Major < 4 {
		return fmt.Errorf("engine version %s is too old, need 4.0 or newer", full)
	}

	plog.Infof("Connected to %s %s", info.ProductInfo.Name, full)
	return nil
}

type fault struct {
	Fault struct {
		Reason string `json:"reason"`
		Detail string `json:"detail"`
	} `json:"fault"`
}

func (a *API) do(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, a.base+"/api"+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var f fault
		if json.Unmarshal(raw, &f) == nil && f.Fault.Reason != "" {
			return fmt.Errorf("%s %s: %s: %s", method, path, f.Fault.Reason, f.Fault.Detail)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return nil
}

func (a *API) get(path string, out interface{}) error {
	return a.do(http.MethodGet, path, nil, out)
}

func (a *API) post(path string, payload, out interface{}) error {
	return a.do(http.MethodPost, path, payload, out)
}
