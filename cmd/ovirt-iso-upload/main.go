// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coreos/ioprogress"
	"github.com/coreos/pkg/capnslog"
	"github.com/spf13/cobra"

	"github.com/westonbelk/ovirt-iso-upload/auth"
	"github.com/westonbelk/ovirt-iso-upload/cli"
	"github.com/westonbelk/ovirt-iso-upload/platform/api/ovirt"
)

var (
	plog = capnslog.NewPackageLogger("github.com/westonbelk/ovirt-iso-upload", "cmd")

	root = &cobra.Command{
		Use:   "ovirt-iso-upload <image>",
		Short: "Upload a local ISO image to an oVirt engine",
		Long: `Upload a local ISO image to an oVirt engine as a new disk.

The image must be a raw-format ISO 9660 file. Credentials are read from the
selected profile in ~/.config/ovirt.json.

After a successful run, the final line of output will be the ID of the disk.
`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	options ovirt.Options
)

func init() {
	root.PersistentFlags().StringVar(&options.ConfigPath, "config-file", "",
		"config file (default \"~/"+auth.OVirtConfigPath+"\")")
	root.PersistentFlags().StringVar(&options.Profile, "profile", "",
		"profile (default \"default\")")
	root.PersistentFlags().StringVar(&options.StorageDomain, "storage-domain", "",
		"target storage domain (default from profile)")
	root.PersistentFlags().DurationVar(&options.Timeout, "timeout", 10*time.Minute,
		"maximum wait for disk provisioning and transfer activation")
}

func main() {
	cli.Execute(root)
}

func runUpload(cmd *cobra.Command, args []string) error {
	id, err := upload(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(id)
	return nil
}

func upload(path string) (string, error) {
	desc, err := ovirt.DescribeImage(path)
	if err != nil {
		return "", err
	}
	plog.Infof("Validated %q: %s raw ISO", desc.Name, ioprogress.ByteUnitStr(desc.Size))

	api, err := ovirt.New(&options)
	if err != nil {
		return "", fmt.Errorf("could not create oVirt client: %v", err)
	}
	defer api.Close()

	if err := api.PreflightCheck(); err != nil {
		return "", fmt.Errorf("could not complete oVirt preflight check: %v", err)
	}

	return api.UploadISO(desc, confirmDuplicates)
}

// confirmDuplicates lists the conflicting disks and asks on the terminal
// whether to continue. Continuing uploads a new disk under the same name;
// it never touches the disks listed.
func confirmDuplicates(existing []ovirt.Disk) (bool, error) {
	fmt.Fprintf(os.Stderr, "%d disk(s) with this name already exist:\n", len(existing))
	for _, d := range existing {
		fmt.Fprintf(os.Stderr, "  %s  %s  %s  %s\n",
			d.ID, d.Name, d.Status, ioprogress.ByteUnitStr(d.ProvisionedSize))
	}
	fmt.Fprint(os.Stderr, "Upload as an additional disk with the same name? [y/N]: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
