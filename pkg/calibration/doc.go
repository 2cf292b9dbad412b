// Package calibration defines the calibration record of the handbrake axis
// and everything that operates on it directly. It contains:
//
//   - Record: the {min, max} raw range the axis is mapped from
//   - Scale: the raw-to-axis mapping used by the control loop
//   - Store / FileStore: persistence of the record across reboots
//   - Phase / Progress: the view of a calibration session shared by the
//     daemon, the status API and the CLI
//
// The persisted format is two base-10 integers, one per line, min first.
// Keep it stable: older devices boot from files written in this format.
package calibration
