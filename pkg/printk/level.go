package printk

import (
	"fmt"
	"strconv"
)

// Level is a syslog severity
type Level uint8

const (
	LevelEmerg Level = iota
	LevelAlert
	LevelCrit
	LevelErr
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return strconv.Itoa(int(l))
}

// ParseLevel accepts a level name such as "warning" or its number
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	switch s {
	case "error":
		return LevelErr, nil
	case "warn":
		return LevelWarning, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= len(levelNames) {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return Level(n), nil
}

// Facility is a syslog facility
type Facility uint16

const (
	FacilityKern Facility = iota
	FacilityUser
	FacilityMail
	FacilityDaemon
	FacilityAuth
	FacilitySyslog
	FacilityLpr
	FacilityNews
	FacilityUucp
	FacilityCron
	FacilityAuthpriv
	FacilityFtp
)

// FacilityLocal0 is the first of the eight local facilities
const FacilityLocal0 Facility = 16

var facilityNames = map[Facility]string{
	FacilityKern:     "kern",
	FacilityUser:     "user",
	FacilityMail:     "mail",
	FacilityDaemon:   "daemon",
	FacilityAuth:     "auth",
	FacilitySyslog:   "syslog",
	FacilityLpr:      "lpr",
	FacilityNews:     "news",
	FacilityUucp:     "uucp",
	FacilityCron:     "cron",
	FacilityAuthpriv: "authpriv",
	FacilityFtp:      "ftp",
}

func (f Facility) String() string {
	if name, ok := facilityNames[f]; ok {
		return name
	}
	if f >= FacilityLocal0 && f < FacilityLocal0+8 {
		return "local" + strconv.Itoa(int(f-FacilityLocal0))
	}
	return strconv.Itoa(int(f))
}

// PackFlags combines a facility and level into the header flags field
func PackFlags(f Facility, l Level) uint16 {
	return uint16(f)<<3 | uint16(l&0x7)
}
