package blink

import "periph.io/x/conn/v3/gpio"

// gpioPin adapts a periph GPIO line to the Pin interface. Output errors are
// dropped: a broken indicator must never affect the pipeline.
type gpioPin struct {
	p gpio.PinIO
}

// GPIO wraps a periph pin as a status LED pin.
func GPIO(p gpio.PinIO) Pin {
	return gpioPin{p: p}
}

func (g gpioPin) High() { _ = g.p.Out(gpio.High) }
func (g gpioPin) Low()  { _ = g.p.Out(gpio.Low) }
