package epd

import "fmt"

// Command is a GDEW042Z15 controller opcode.
type Command byte

const (
	PanelSetting               Command = 0x00
	PowerSetting               Command = 0x01
	PowerOff                   Command = 0x02
	PowerOffSequenceSetting    Command = 0x03
	PowerOn                    Command = 0x04
	PowerOnMeasure             Command = 0x05
	BoosterSoftStart           Command = 0x06
	DeepSleep                  Command = 0x07
	DataStartTransmission1     Command = 0x10
	DataStop                   Command = 0x11
	DisplayRefresh             Command = 0x12
	DataStartTransmission2     Command = 0x13
	LUTForVCOM                 Command = 0x20
	LUTWhiteToWhite            Command = 0x21
	LUTBlackToWhite            Command = 0x22
	LUTWhiteToBlack            Command = 0x23
	LUTBlackToBlack            Command = 0x24
	PLLControl                 Command = 0x30
	TemperatureSensorCommand   Command = 0x40
	TemperatureSensorSelection Command = 0x41
	TemperatureSensorWrite     Command = 0x42
	TemperatureSensorRead      Command = 0x43
	VCOMAndDataIntervalSetting Command = 0x50
	LowPowerDetection          Command = 0x51
	TCONSetting                Command = 0x60
	ResolutionSetting          Command = 0x61
	GSSTSetting                Command = 0x65
	GetStatus                  Command = 0x71
	AutoMeasurementVCOM        Command = 0x80
	ReadVCOMValue              Command = 0x81
	VCMDCSetting               Command = 0x82
	PartialWindow              Command = 0x90
	PartialIn                  Command = 0x91
	PartialOut                 Command = 0x92
	ProgramMode                Command = 0xA0
	ActiveProgramming          Command = 0xA1
	ReadOTP                    Command = 0xA2
	PowerSaving                Command = 0xE3
)

var commandNames = map[Command]string{
	PanelSetting:               "PanelSetting",
	PowerSetting:               "PowerSetting",
	PowerOff:                   "PowerOff",
	PowerOffSequenceSetting:    "PowerOffSequenceSetting",
	PowerOn:                    "PowerOn",
	PowerOnMeasure:             "PowerOnMeasure",
	BoosterSoftStart:           "BoosterSoftStart",
	DeepSleep:                  "DeepSleep",
	DataStartTransmission1:     "DataStartTransmission1",
	DataStop:                   "DataStop",
	DisplayRefresh:             "DisplayRefresh",
	DataStartTransmission2:     "DataStartTransmission2",
	LUTForVCOM:                 "LUTForVCOM",
	LUTWhiteToWhite:            "LUTWhiteToWhite",
	LUTBlackToWhite:            "LUTBlackToWhite",
	LUTWhiteToBlack:            "LUTWhiteToBlack",
	LUTBlackToBlack:            "LUTBlackToBlack",
	PLLControl:                 "PLLControl",
	TemperatureSensorCommand:   "TemperatureSensorCommand",
	TemperatureSensorSelection: "TemperatureSensorSelection",
	TemperatureSensorWrite:     "TemperatureSensorWrite",
	TemperatureSensorRead:      "TemperatureSensorRead",
	VCOMAndDataIntervalSetting: "VCOMAndDataIntervalSetting",
	LowPowerDetection:          "LowPowerDetection",
	TCONSetting:                "TCONSetting",
	ResolutionSetting:          "ResolutionSetting",
	GSSTSetting:                "GSSTSetting",
	GetStatus:                  "GetStatus",
	AutoMeasurementVCOM:        "AutoMeasurementVCOM",
	ReadVCOMValue:              "ReadVCOMValue",
	VCMDCSetting:               "VCMDCSetting",
	PartialWindow:              "PartialWindow",
	PartialIn:                  "PartialIn",
	PartialOut:                 "PartialOut",
	ProgramMode:                "ProgramMode",
	ActiveProgramming:          "ActiveProgramming",
	ReadOTP:                    "ReadOTP",
	PowerSaving:                "PowerSaving",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%#02x)", byte(c))
}
