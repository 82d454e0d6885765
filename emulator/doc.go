// Package emulator plays the device side of the gesture capture protocol.
//
// A Device announces its configuration, waits for the host's START before
// each gesture and transmits every repetition as a DATA block followed by a
// COUNT marker, resending on NACK. Faults can be injected per gesture,
// repetition and attempt to exercise the host's verification and retry path
// without hardware:
//
//	cfg, _ := emulator.NewConfig(
//		emulator.WithGestures("wave", "tap"),
//		emulator.WithFault(emulator.Fault{Kind: emulator.DropSamples, Attempts: 1, Drop: 2}),
//	)
//	host, dev := serialport.NewLoopback()
//	device, _ := emulator.NewDevice(dev, cfg)
//	go device.Run(ctx)
package emulator
