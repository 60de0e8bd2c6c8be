// Package blink renders pipeline stage outcomes as LED patterns. Patterns
// are blocking and purely diagnostic; they never gate pipeline progress.
package blink

import "time"

// Pattern identifies one of the fixed diagnostic light patterns.
type Pattern int

const (
	Startup       Pattern = iota // 3 quick blinks (system alive)
	Connecting                   // fast continuous blinking (~2s)
	Connected                    // solid on for 2 seconds
	AuthFailure                  // 5 fast blinks + 1 long (wrong credentials)
	NoAccessPoint                // 2 long blinks (timeout)
	SensorFailure                // 3 long blinks
	UploadFailure                // 4 short blinks
	SleepEntry                   // 1 long blink (goodbye)
)

func (p Pattern) String() string {
	switch p {
	case Startup:
		return "startup"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case AuthFailure:
		return "auth-failure"
	case NoAccessPoint:
		return "no-access-point"
	case SensorFailure:
		return "sensor-failure"
	case UploadFailure:
		return "upload-failure"
	case SleepEntry:
		return "sleep-entry"
	default:
		return "unknown"
	}
}

// Pin is the minimal control surface of the status LED.
type Pin interface {
	High()
	Low()
}

// LED plays patterns on a Pin. The sleep function is injectable so tests run
// without wall-clock delays.
type LED struct {
	pin   Pin
	sleep func(time.Duration)
}

func New(pin Pin, sleep func(time.Duration)) *LED {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &LED{pin: pin, sleep: sleep}
}

// Signal plays the given pattern to completion.
func (l *LED) Signal(p Pattern) {
	switch p {
	case Startup:
		l.blink(3, 150*time.Millisecond, 150*time.Millisecond)
		l.sleep(500 * time.Millisecond)
	case Connecting:
		l.blink(10, 100*time.Millisecond, 100*time.Millisecond)
	case Connected:
		l.solid(2 * time.Second)
		l.sleep(500 * time.Millisecond)
	case AuthFailure:
		l.sequence(5, 1, 100*time.Millisecond, 800*time.Millisecond)
		l.sleep(500 * time.Millisecond)
	case NoAccessPoint:
		l.blink(2, 800*time.Millisecond, 300*time.Millisecond)
		l.sleep(500 * time.Millisecond)
	case SensorFailure:
		l.blink(3, 800*time.Millisecond, 300*time.Millisecond)
		l.sleep(500 * time.Millisecond)
	case UploadFailure:
		l.blink(4, 200*time.Millisecond, 200*time.Millisecond)
		l.sleep(500 * time.Millisecond)
	case SleepEntry:
		l.pin.High()
		l.sleep(1 * time.Second)
		l.pin.Low()
		l.sleep(200 * time.Millisecond)
	}
}

func (l *LED) blink(times int, on, off time.Duration) {
	for i := 0; i < times; i++ {
		l.pin.High()
		l.sleep(on)
		l.pin.Low()
		// No trailing pause after the last blink.
		if i < times-1 {
			l.sleep(off)
		}
	}
}

// sequence plays a group of fast blinks followed by a group of long blinks
// separated by a fixed pause.
func (l *LED) sequence(fast, long int, fastDur, longDur time.Duration) {
	for i := 0; i < fast; i++ {
		l.pin.High()
		l.sleep(fastDur)
		l.pin.Low()
		l.sleep(fastDur)
	}

	l.sleep(300 * time.Millisecond)

	for i := 0; i < long; i++ {
		l.pin.High()
		l.sleep(longDur)
		l.pin.Low()
		if i < long-1 {
			l.sleep(300 * time.Millisecond)
		}
	}
}

func (l *LED) solid(d time.Duration) {
	l.pin.High()
	l.sleep(d)
	l.pin.Low()
}
