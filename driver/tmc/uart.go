package tmc

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"tinygo.org/x/drivers/tmc2209"
)

const (
	syncByte     = 0x05
	masterAddr   = 0xFF
	writeFlag    = 0x80
	readRequest  = 4
	writeRequest = 8
	replyLength  = 8
)

// ErrCRC is returned when a reply datagram fails its checksum
var ErrCRC = errors.New("tmc uart: bad crc")

// UARTComm implements tmc2209.RegisterComm over a byte stream. On
// single-wire adapters every request is read back before the reply, so
// Echo skips that many bytes.
type UARTComm struct {
	mu   sync.Mutex
	port io.ReadWriter
	Echo bool
}

var _ tmc2209.RegisterComm = (*UARTComm)(nil)

// NewUARTComm returns a register bus on port
func NewUARTComm(port io.ReadWriter, echo bool) *UARTComm {
	return &UARTComm{port: port, Echo: echo}
}

// WriteRegister writes a 32-bit register value
func (c *UARTComm) WriteRegister(register uint8, value uint32, driverIndex uint8) error {
	buf := []byte{
		syncByte,
		driverIndex,
		register | writeFlag,
		byte(value >> 24),
		byte(value >> 16),
		byte(value >> 8),
		byte(value),
		0,
	}
	buf[writeRequest-1] = tmc2209.CalculateCRC(buf[:writeRequest-1])

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.port.Write(buf); err != nil {
		return errors.Wrap(err, "tmc uart: write")
	}
	return c.skipEcho(writeRequest)
}

// ReadRegister reads a 32-bit register value
func (c *UARTComm) ReadRegister(register uint8, driverIndex uint8) (uint32, error) {
	req := []byte{syncByte, driverIndex, register &^ writeFlag, 0}
	req[readRequest-1] = tmc2209.CalculateCRC(req[:readRequest-1])

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.port.Write(req); err != nil {
		return 0, errors.Wrap(err, "tmc uart: write")
	}
	if err := c.skipEcho(readRequest); err != nil {
		return 0, err
	}

	reply := make([]byte, replyLength)
	if _, err := io.ReadFull(c.port, reply); err != nil {
		return 0, errors.Wrapf(err, "tmc uart: read register 0x%02x", register)
	}
	if reply[0] != syncByte || reply[1] != masterAddr || reply[2] != register {
		return 0, errors.Errorf("tmc uart: unexpected reply % x", reply)
	}
	if tmc2209.CalculateCRC(reply[:replyLength-1]) != reply[replyLength-1] {
		return 0, ErrCRC
	}
	return uint32(reply[3])<<24 | uint32(reply[4])<<16 | uint32(reply[5])<<8 | uint32(reply[6]), nil
}

func (c *UARTComm) skipEcho(n int) error {
	if !c.Echo {
		return nil
	}
	if _, err := io.CopyN(io.Discard, c.port, int64(n)); err != nil {
		return errors.Wrap(err, "tmc uart: echo")
	}
	return nil
}
