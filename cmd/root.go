/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/skohler/chamber-pi/pkg/chamber"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chamber-pi",
	Short: "Light-intensity chamber controller for Raspberry Pi",
	Long: `chamber-pi reads an ambient-light stream over UART, a potentiometer
over an MCP3008 ADC and two physical switches, derives a target brightness
from adaptive signal bounds and drives a PWM LED channel. Status is shown
on a character LCD and exposed over HTTP and MQTT.`,
	Run: chamber.Root(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chamber-pi.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Buses and pins
	rootCmd.PersistentFlags().String("i2cbus", "", "name of the i2c bus (lcd)")
	rootCmd.PersistentFlags().String("spibus", "", "name of the spi bus (mcp3008)")
	rootCmd.PersistentFlags().String("serial-port", "/dev/serial0", "serial port delivering lux readings")
	rootCmd.PersistentFlags().Int("baud", 115200, "serial baud rate")
	rootCmd.PersistentFlags().Int("pot-channel", 0, "mcp3008 channel wired to the potentiometer")
	rootCmd.PersistentFlags().String("led-pin", "GPIO18", "pwm output pin for the led channel")
	rootCmd.PersistentFlags().String("mode-switch-pin", "GPIO14", "mode select switch (pot/lux)")
	rootCmd.PersistentFlags().String("enable-switch-pin", "GPIO12", "led enable switch")
	rootCmd.PersistentFlags().Int("lcd-address", 0x27, "i2c address of the lcd backpack")

	// Control loop
	rootCmd.PersistentFlags().Duration("tick-interval", 100*time.Millisecond, "control loop tick interval")
	rootCmd.PersistentFlags().Int("window-size", 600, "rolling sample window size")
	rootCmd.PersistentFlags().String("filter", "ema", "signal filter: none, sma, ema or sg")
	rootCmd.PersistentFlags().Int("filter-window", 11, "sma/sg filter window width")
	rootCmd.PersistentFlags().Float64("filter-alpha", 0.1, "ema filter smoothing constant")
	rootCmd.PersistentFlags().Int("sg-order", 3, "savitzky-golay polynomial order")
	rootCmd.PersistentFlags().String("bounds-strategy", "robust", "bounds estimator: simple or robust")
	rootCmd.PersistentFlags().Float64("bounds-alpha", 0.05, "bounds blending smoothing constant")
	rootCmd.PersistentFlags().Float64("outlier-sigma", 3.0, "robust bounds outlier rejection multiplier")
	rootCmd.PersistentFlags().Float64("default-span", 1000, "assumed lux span before the window fills")
	rootCmd.PersistentFlags().Int("max-pwm", 1023, "maximum actuator code")
	rootCmd.PersistentFlags().Duration("watchdog-timeout", 10*time.Second, "led shutdown timeout without lux readings")
	rootCmd.PersistentFlags().Duration("lcd-interval", 500*time.Millisecond, "lcd refresh interval")

	// Transports and storage
	rootCmd.PersistentFlags().String("http-addr", ":5000", "web api listen address")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "mqtt broker url")
	rootCmd.PersistentFlags().Int("mqtt-sample-interval", 10, "publish every nth snapshot to mqtt")
	rootCmd.PersistentFlags().String("db-path", "chamber.db", "history database path")
	rootCmd.PersistentFlags().Duration("history-max-age", 168*time.Hour, "retention for logged readings")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".chamber-pi" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".chamber-pi")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
