package console

import (
	"testing"
)

func TestParseBasicCommands(t *testing.T) {
	tests := []struct {
		input   string
		cmdType byte
		cmdNum  int
		params  map[byte]float64
	}{
		{
			input:   "G0 X10 Y20",
			cmdType: 'G',
			cmdNum:  0,
			params:  map[byte]float64{'X': 10, 'Y': 20},
		},
		{
			input:   "G1 X100.5 Y-200 F3000 K500",
			cmdType: 'G',
			cmdNum:  1,
			params:  map[byte]float64{'X': 100.5, 'Y': -200, 'F': 3000, 'K': 500},
		},
		{
			input:   "M3 Z-800",
			cmdType: 'M',
			cmdNum:  3,
			params:  map[byte]float64{'Z': -800},
		},
		{
			input:   "M220 S150",
			cmdType: 'M',
			cmdNum:  220,
			params:  map[byte]float64{'S': 150},
		},
		{
			input:   "m112",
			cmdType: 'M',
			cmdNum:  112,
			params:  map[byte]float64{},
		},
	}

	for _, test := range tests {
		cmd, err := ParseLine(test.input)
		if err != nil {
			t.Errorf("Failed to parse '%s': %v", test.input, err)
			continue
		}

		if cmd == nil {
			t.Errorf("Got nil command for '%s'", test.input)
			continue
		}

		if cmd.Type != test.cmdType {
			t.Errorf("Expected type %c, got %c for '%s'", test.cmdType, cmd.Type, test.input)
		}

		if cmd.Number != test.cmdNum {
			t.Errorf("Expected number %d, got %d for '%s'", test.cmdNum, cmd.Number, test.input)
		}

		if len(cmd.Parameters) != len(test.params) {
			t.Errorf("Expected %d parameters, got %d for '%s'", len(test.params), len(cmd.Parameters), test.input)
		}
		for param, value := range test.params {
			if !cmd.HasParameter(param) {
				t.Errorf("Missing parameter %c in '%s'", param, test.input)
			} else if cmd.GetParameter(param, 0) != value {
				t.Errorf("Expected %c=%f, got %c=%f in '%s'",
					param, value, param, cmd.GetParameter(param, 0), test.input)
			}
		}
	}
}

func TestParseComments(t *testing.T) {
	tests := []string{
		"; This is a comment",
		"G0 X10 ; Move to X10",
		"(This is a comment)",
	}

	for _, test := range tests {
		cmd, err := ParseLine(test)
		if err != nil {
			t.Errorf("Failed to parse '%s': %v", test, err)
		}

		if cmd == nil || cmd.Comment == "" {
			t.Errorf("Expected comment for '%s'", test)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"X10",
		"G",
		"G1 X",
		"G1 X10 #",
		"T0",
	}

	for _, test := range tests {
		if _, err := ParseLine(test); err == nil {
			t.Errorf("Expected error for '%s'", test)
		}
	}
}

func TestParseEmptyLine(t *testing.T) {
	for _, line := range []string{"", "   ", "\t\r"} {
		cmd, err := ParseLine(line)
		if err != nil {
			t.Errorf("Empty line should not error: %v", err)
		}
		if cmd != nil {
			t.Errorf("Empty line should return nil command")
		}
	}
}
