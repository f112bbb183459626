// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package mm

import "fmt"

// Type is a module type code as reported in the port record. The i2c family
// uses the SFF-8024 identifier values; the CFP family values from the CFP MSA
// management interface overlap those, so they are offset by CfpOffset.
type Type int32

const CfpOffset = 0x100

const (
	Unknown Type = iota
	Gbic
	Soldered
	Sfp
	Xbi
	Xenpak
	Xfp
	Xff
	XfpE
	Xpak
	X2
	DwdmSfp
	Qsfp
	QsfpPlus
	Cxp
	SmmHd4X
	SmmHd8X
	Qsfp28
	Cxp2
	Cdfp
	SmmHd4XFanout
	SmmHd8XFanout
	CdfpStyle3
	MicroQsfp
)

const (
	Cfp          Type = CfpOffset + 0x0E
	Cfp168Pin5x7 Type = CfpOffset + 0x10
	Cfp2         Type = CfpOffset + 0x11
	Cfp4         Type = CfpOffset + 0x12
	Cfp168Pin4x5 Type = CfpOffset + 0x13
	Cfp2Aco      Type = CfpOffset + 0x14
)

// No module, or one that failed identification.
const (
	Invalid    Type = -1
	NotPresent Type = -2
)

var typeNames = map[Type]string{
	Unknown:       "UNKNOWN",
	Gbic:          "GBIC",
	Soldered:      "SOLDERED",
	Sfp:           "SFP",
	Xbi:           "XBI",
	Xenpak:        "XENPAK",
	Xfp:           "XFP",
	Xff:           "XFF",
	XfpE:          "XFP_E",
	Xpak:          "XPAK",
	X2:            "X2",
	DwdmSfp:       "DWDM_SFP",
	Qsfp:          "QSFP",
	QsfpPlus:      "QSFP_PLUS",
	Cxp:           "CXP",
	SmmHd4X:       "SMM_HD_4X",
	SmmHd8X:       "SMM_HD_8X",
	Qsfp28:        "QSFP28",
	Cxp2:          "CXP2",
	Cdfp:          "CDFP",
	SmmHd4XFanout: "SMM_HD_4X_FANOUT",
	SmmHd8XFanout: "SMM_HD_8X_FANOUT",
	CdfpStyle3:    "CDFP_STYLE_3",
	MicroQsfp:     "MICRO_QSFP",
	Cfp:           "CFP",
	Cfp168Pin5x7:  "168_PIN_5X7",
	Cfp2:          "CFP2",
	Cfp4:          "CFP4",
	Cfp168Pin4x5:  "168_PIN_4X5",
	Cfp2Aco:       "CFP2_ACO",
	Invalid:       "INVALID",
	NotPresent:    "NOT_PRESENT",
}

var typesByName map[string]Type

func init() {
	typesByName = make(map[string]Type, len(typeNames))
	for t, s := range typeNames {
		typesByName[s] = t
	}
}

func (t Type) String() string {
	if s, found := typeNames[t]; found {
		return s
	}
	return fmt.Sprintf("TYPE_%#x", int32(t))
}

// Known reports whether t is a member of the type enumeration.
func (t Type) Known() bool {
	_, found := typeNames[t]
	return found
}

// IsCfp reports whether t belongs to the CFP (MDIO) family.
func (t Type) IsCfp() bool { return t >= Cfp && t <= Cfp2Aco }

// TypeByName returns the type for the symbolic name, e.g. "QSFP28".
func TypeByName(s string) (Type, bool) {
	t, found := typesByName[s]
	return t, found
}

// Identifier returns the type for an SFF-8024 identifier byte read from a
// module's A0h offset 0.
func Identifier(b byte) Type {
	t := Type(b)
	if t.Known() {
		return t
	}
	return Unknown
}
