package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"thermo-service/internal/core"
	"thermo-service/internal/display"
	"thermo-service/internal/hardware"
	"thermo-service/internal/logger"
	"thermo-service/internal/messaging"
	"thermo-service/internal/params"
)

func main() {
	// Service log level
	var serviceLogLevel int
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")

	var redisHost string
	var redisPort int
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis server host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis server port")

	var gpioChip string
	flag.StringVar(&gpioChip, "gpiochip", hardware.DefaultGpioChip, "GPIO chip device name")

	var adcDevice string
	var adcChannel, adcBits int
	flag.StringVar(&adcDevice, "adc-device", hardware.DefaultAdcDevice, "IIO ADC device name")
	flag.IntVar(&adcChannel, "adc-channel", hardware.DefaultAdcChannel, "IIO ADC channel for the temperature sensor")
	flag.IntVar(&adcBits, "adc-bits", hardware.DefaultAdcBits, "Native resolution of the ADC in bits")

	var paramsPath string
	flag.StringVar(&paramsPath, "params", hardware.DefaultParamsPath, "Path to the settings file")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting thermo service...")

	panel, err := display.NewTM1637(gpioChip, hardware.DisplayClkLine, hardware.DisplayDioLine, "thermo-service")
	if err != nil {
		l.Fatalf("Failed to open display: %v", err)
	}
	defer panel.Close()

	io := hardware.NewThermoHardwareIO(gpioChip, l)
	adc := hardware.NewSysfsADC(adcDevice, adcChannel, adcBits)
	store := params.NewStore(paramsPath, l)
	redis := messaging.NewRedisClient(redisHost, redisPort, l, messaging.Callbacks{})

	system := core.NewThermoSystem(io, adc, panel, redis, store, l)
	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete")
}
