//go:build rp2040

package main

import (
	"machine"
)

// initUSB configures the USB CDC console. On the RP2040 machine.Serial is
// USB CDC, not a UART; the descriptors come from the TinyGo runtime.
func initUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// usbAvailable returns the number of buffered input bytes
func usbAvailable() int {
	return machine.Serial.Buffered()
}

// usbRead reads a single byte
func usbRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// usbWrite writes all of data, giving up after repeated failures so a
// disconnected host does not stall the console
func usbWrite(data []byte) {
	failures := 0
	for len(data) > 0 && failures < 10 {
		n, err := machine.Serial.Write(data)
		if err != nil || n == 0 {
			failures++
			continue
		}
		data = data[n:]
	}
}

func usbPrintln(s string) {
	usbWrite([]byte(s))
	usbWrite([]byte{'\n'})
}
