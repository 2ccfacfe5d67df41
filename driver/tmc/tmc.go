// Package tmc reads and clears the fault state of TMC2209 stepper drivers
// sharing one UART, and sets their direction polarity.
package tmc

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"tinygo.org/x/drivers/tmc2209"
)

// Logger is the structured logging subset the driver needs. A
// *zap.SugaredLogger satisfies it; firmware builds pass nil.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}
func (nopLogger) Warnw(string, ...interface{})  {}

// MaxAddress is the highest address selectable with MS1/MS2
const MaxAddress = 3

// Fault errors reported by Status.Fault
var (
	ErrReset       = errors.New("driver reset since last clear")
	ErrDriverError = errors.New("driver shut down on error")
	ErrUndervolt   = errors.New("charge pump undervoltage")
	ErrOverTemp    = errors.New("overtemperature shutdown")
	ErrOpenLoad    = errors.New("open load")
	ErrShort       = errors.New("short circuit")
)

// Status is the decoded fault state of one driver
type Status struct {
	Reset        bool
	DrvErr       bool
	UvCp         bool
	OverTemp     bool
	OverTempWarn bool
	OpenLoad     bool
	Short        bool
	Standstill   bool
}

// Fault returns every active fault, or nil. A reset alone is reported too,
// since it means the driver lost its configuration.
func (s Status) Fault() error {
	var err error
	if s.Reset {
		err = multierr.Append(err, ErrReset)
	}
	if s.DrvErr {
		err = multierr.Append(err, ErrDriverError)
	}
	if s.UvCp {
		err = multierr.Append(err, ErrUndervolt)
	}
	if s.OverTemp {
		err = multierr.Append(err, ErrOverTemp)
	}
	if s.OpenLoad {
		err = multierr.Append(err, ErrOpenLoad)
	}
	if s.Short {
		err = multierr.Append(err, ErrShort)
	}
	return err
}

// Driver talks to one TMC2209 through a shared register bus
type Driver struct {
	comm   tmc2209.RegisterComm
	index  uint8
	logger Logger
}

// NewDriver binds a driver at the given UART address
func NewDriver(comm tmc2209.RegisterComm, index uint8, logger Logger) (*Driver, error) {
	if index > MaxAddress {
		return nil, errors.Errorf("tmc address %d out of range", index)
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Driver{comm: comm, index: index, logger: logger}, nil
}

// Index returns the UART address
func (d *Driver) Index() uint8 { return d.index }

// Probe reads GSTAT and DRV_STATUS
func (d *Driver) Probe() (Status, error) {
	gstat := tmc2209.NewGstat()
	v, err := d.comm.ReadRegister(tmc2209.GSTAT, d.index)
	if err != nil {
		return Status{}, errors.Wrapf(err, "tmc%d: read GSTAT", d.index)
	}
	gstat.Bytes = v
	gstat.Unpack(v)

	drv := tmc2209.NewDrvStatus()
	v, err = d.comm.ReadRegister(tmc2209.DRV_STATUS, d.index)
	if err != nil {
		return Status{}, errors.Wrapf(err, "tmc%d: read DRV_STATUS", d.index)
	}
	drv.Bytes = v
	drv.Unpack(v)

	st := Status{
		Reset:        gstat.Reset != 0,
		DrvErr:       gstat.DrvErr != 0,
		UvCp:         gstat.UvCp != 0,
		OverTemp:     drv.Ot != 0,
		OverTempWarn: drv.Otpw != 0,
		OpenLoad:     drv.Ola|drv.Olb != 0,
		Short:        drv.S2ga|drv.S2gb|drv.S2vsa|drv.S2vsb != 0,
		Standstill:   drv.Stst != 0,
	}
	if err := st.Fault(); err != nil {
		d.logger.Warnw("driver fault", "addr", d.index, "faults", len(multierr.Errors(err)), "error", err)
	} else if st.OverTempWarn {
		d.logger.Warnw("driver overtemperature pre-warning", "addr", d.index)
	}
	return st, nil
}

// ClearFaults clears the latched GSTAT flags
func (d *Driver) ClearFaults() error {
	gstat := tmc2209.NewGstat()
	gstat.Reset, gstat.DrvErr, gstat.UvCp = 1, 1, 1
	if err := d.comm.WriteRegister(tmc2209.GSTAT, gstat.Pack(), d.index); err != nil {
		return errors.Wrapf(err, "tmc%d: clear GSTAT", d.index)
	}
	d.logger.Debugw("cleared faults", "addr", d.index)
	return nil
}

// SetShaftInverted flips the motor direction at the driver
func (d *Driver) SetShaftInverted(inverted bool) error {
	gconf := tmc2209.NewGconf()
	v, err := d.comm.ReadRegister(tmc2209.GCONF, d.index)
	if err != nil {
		return errors.Wrapf(err, "tmc%d: read GCONF", d.index)
	}
	gconf.Bytes = v
	gconf.Unpack(v)

	gconf.Shaft = 0
	if inverted {
		gconf.Shaft = 1
	}
	if err := d.comm.WriteRegister(tmc2209.GCONF, gconf.Pack(), d.index); err != nil {
		return errors.Wrapf(err, "tmc%d: write GCONF", d.index)
	}
	return nil
}
