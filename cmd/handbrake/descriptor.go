package main

import (
	"encoding/hex"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/charlie0129/handbrake/pkg/hid"
)

// NewDescriptorCommand prints or installs the HID report descriptor the
// USB gadget function must be configured with.
func NewDescriptorCommand() *cobra.Command {
	write := ""

	cmd := &cobra.Command{
		Use:         "descriptor",
		Short:       "Print the HID report descriptor",
		GroupID:     gAdvanced,
		Annotations: local,
		Long: `Print the HID report descriptor as hex.

With --write, the raw descriptor is written to the report_desc file of a
configfs HID function instead, e.g.
  /sys/kernel/config/usb_gadget/g1/functions/hid.usb0/report_desc
The protocol, subclass and report_length files must be set alongside; the
report length is printed for convenience.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if write == "" {
				cmd.Println(hex.EncodeToString(hid.ReportDescriptor))
				cmd.Printf("report_length: %d\n", hid.ReportLength)
				return nil
			}

			if err := os.WriteFile(write, hid.ReportDescriptor, 0644); err != nil {
				return pkgerrors.Wrapf(err, "failed to write descriptor to %s", write)
			}
			lengthFile := filepath.Join(filepath.Dir(write), "report_length")
			cmd.Printf("Descriptor written. Set %s to %d.\n", lengthFile, hid.ReportLength)
			return nil
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "Write the raw descriptor to this file.")

	return cmd
}
