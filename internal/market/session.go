package market

import (
	"sync"
	"time"
)

// Phase is the intraday trading phase of an SSE/SZSE session.
type Phase int

const (
	Other       Phase = iota
	PreAuction1       // 09:15-09:20, orders may be cancelled
	PreAuction2       // 09:20-09:25, orders may not be cancelled
	PreAuction3       // 09:25-09:30, orders collected only; open price fixed at 09:25
	Continuous        // 09:30-11:30 and 13:00-14:57
	PreAuction4       // 14:57-15:00 closing call auction, no cancels
)

var phaseNames = map[Phase]string{
	Other:       "others",
	PreAuction1: "auction1",
	PreAuction2: "auction2",
	PreAuction3: "auction3",
	Continuous:  "continuous",
	PreAuction4: "auction4",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "others"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// boundary starts a half-open interval [minute, next.minute).
type boundary struct {
	minute int
	phase  Phase
}

var schedule = []boundary{
	{9*60 + 15, PreAuction1},
	{9*60 + 20, PreAuction2},
	{9*60 + 25, PreAuction3},
	{9*60 + 30, Continuous},
	{11*60 + 30, Other},
	{13 * 60, Continuous},
	{14*60 + 57, PreAuction4},
	{15 * 60, Other},
}

// PhaseOf maps t's wall clock to a phase. Non-trading days are always Other.
// Seconds count: 09:19:59 is still PreAuction1.
func PhaseOf(t time.Time, isTradingDay bool) Phase {
	if !isTradingDay {
		return Other
	}
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	phase := Other
	for _, b := range schedule {
		if sec < b.minute*60 {
			break
		}
		phase = b.phase
	}
	return phase
}

// TradingDays is satisfied by *calendar.Calendar.
type TradingDays interface {
	Contains(d time.Time) bool
}

// Classify looks up t's date in days and returns the phase of t.
func Classify(t time.Time, days TradingDays) Phase {
	return PhaseOf(t, days != nil && days.Contains(t))
}

func IsAuction(p Phase) bool {
	switch p {
	case PreAuction1, PreAuction2, PreAuction3, PreAuction4:
		return true
	}
	return false
}

// CanCancel reports whether orders may be withdrawn during p.
func CanCancel(p Phase) bool {
	return p == PreAuction1 || p == Continuous
}

// IsCNTradingTime checks the continuous sessions in Asia/Shanghai against days.
func IsCNTradingTime(t time.Time, days TradingDays) bool {
	t = t.In(ShanghaiLocation())
	return Classify(t, days) == Continuous
}

var (
	shanghaiOnce sync.Once
	shanghai     *time.Location
)

// ShanghaiLocation is Asia/Shanghai, or a fixed UTC+8 zone when tzdata is missing.
func ShanghaiLocation() *time.Location {
	shanghaiOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			loc = time.FixedZone("CST", 8*3600)
		}
		shanghai = loc
	})
	return shanghai
}
