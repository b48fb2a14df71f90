package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/iwvelando/dock-negotiator/internal/config"
	"github.com/iwvelando/dock-negotiator/internal/decision"
	"github.com/iwvelando/dock-negotiator/internal/logging"
	"github.com/iwvelando/dock-negotiator/internal/session"
	"github.com/iwvelando/dock-negotiator/internal/textloop"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/iwvelando/dock-negotiator/pkg/output"
	"github.com/iwvelando/dock-negotiator/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")

	offered := flag.String("offer", "", "time offered by the warehouse, e.g. \"4 PM\" or \"two thirty\"")
	original := flag.String("original", "", "original appointment time")
	delay := flag.Int("delay", 0, "minutes the truck is running late")
	shipmentValue := flag.Float64("value", 0, "shipment value in dollars")
	retailer := flag.String("retailer", "", "retailer on the contract")
	termsFile := flag.String("terms", "", "path to extracted contract terms JSON")
	hosFile := flag.String("hos", "", "path to driver hours-of-service JSON")
	now := flag.String("now", "", "current time override for hours-of-service checks")
	pushbacks := flag.Int("pushbacks", 0, "counter-offers already made on this call")
	interactive := flag.Bool("interactive", false, "negotiate over stdin, one warehouse line at a time")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"warn\", \"msg\": \"failed to load .env\", \"error\": \"%v\"}\n", err)
	}

	// A missing default config file means built-in defaults.
	path := *configLocation
	if path == constants.DefaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	conf, err := config.LoadConfiguration(path)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(), zap.String("op", "main"))
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}

	req := decision.Request{
		ProposedTime:        *offered,
		OriginalAppointment: *original,
		DelayMinutes:        *delay,
		ShipmentValue:       *shipmentValue,
		Retailer:            *retailer,
		CurrentTime:         *now,
		PriorPushbacks:      *pushbacks,
	}
	if req.ExtractedTermsJSON, err = readOptionalFile(*termsFile); err != nil {
		logger.Fatal("failed to read contract terms", zap.String("op", "main"), zap.Error(err))
	}
	if req.DriverHOSJSON, err = readOptionalFile(*hosFile); err != nil {
		logger.Fatal("failed to read driver hours-of-service", zap.String("op", "main"), zap.Error(err))
	}

	opts := conf.DecisionOptions()

	if *interactive {
		if err := runInteractive(logger, conf, req, opts); err != nil {
			logger.Fatal("interactive negotiation failed", zap.String("op", "main"), zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(req.ProposedTime) == "" {
		logger.Fatal("an -offer is required unless -interactive is set", zap.String("op", "main"))
	}

	result := decision.EvaluateOffer(logger, req, opts)
	if err := output.Write(os.Stdout, outputFormat, result); err != nil {
		logger.Fatal("failed to write result", zap.String("op", "main"), zap.Error(err))
	}
}

func runInteractive(logger *zap.Logger, conf *config.Configuration, base decision.Request, opts decision.Options) error {
	ctx := context.Background()
	storeConfig := conf.SessionStoreConfig()
	store, err := session.NewStore(ctx, storeConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	negotiator := textloop.New(logger, store, base, opts)
	callID := uuid.NewString()

	fmt.Printf("agent> %s\n", negotiator.Greeting())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("warehouse> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := negotiator.Respond(ctx, callID, line)
		if err != nil {
			return err
		}
		fmt.Printf("agent> %s\n", reply.Text)
		if reply.Agreed {
			break
		}
	}
	return scanner.Err()
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
