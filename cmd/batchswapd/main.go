package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
	"go.vocdoni.io/dvote/util"

	"github.com/darkswap-labs/batchswap/custody"
	"github.com/darkswap-labs/batchswap/engine"
	"github.com/darkswap-labs/batchswap/service"
	"github.com/darkswap-labs/batchswap/storage"
	"github.com/darkswap-labs/batchswap/venue"
)

func main() {
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	dataDir := flag.String("datadir", filepath.Join(os.TempDir(), "batchswapd"), "data directory for the audit trail")
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 9095, "API port to bind")
	operator := flag.String("operator", "", "operator address (hex)")
	assets := flag.StringSlice("assets", nil, "asset addresses to register in-memory custody for (hex)")
	rateNum := flag.Uint64("rate-num", 1, "fixed venue rate numerator")
	rateDen := flag.Uint64("rate-den", 1, "fixed venue rate denominator")
	threshold := flag.Int("batch-threshold", 0, "batch size trigger (0 keeps the stored or default value)")
	timeout := flag.Duration("batch-timeout", 0, "batch age trigger (0 keeps the stored or default value)")
	tick := flag.Duration("tick", service.DefaultTickInterval, "age trigger evaluation interval")

	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	if !common.IsHexAddress(*operator) {
		log.Fatalf("a valid --operator address is required")
	}
	operatorAddr := common.HexToAddress(*operator)
	engineAddr := common.BytesToAddress(util.RandomBytes(20))

	database, err := metadb.New(db.TypePebble, *dataDir)
	if err != nil {
		log.Fatal(err)
	}
	store := storage.New(database)
	defer store.Close()

	swapVenue := venue.NewFixedRate(*rateNum, *rateDen)
	eng, err := engine.New(engineAddr, operatorAddr, swapVenue, store)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("engine initialized",
		"address", engineAddr.Hex(),
		"operator", operatorAddr.Hex(),
		"datadir", *dataDir,
	)

	// restore the persisted configuration, then apply flag overrides
	cfg := eng.Config()
	if rec, err := store.Config(); err == nil {
		cfg.BatchThreshold = rec.BatchThreshold
		cfg.BatchTimeout = rec.BatchTimeout
		cfg.SlippageBps = rec.SlippageBps
		cfg.VenueDeadline = rec.VenueDeadline
	}
	if *threshold > 0 {
		cfg.BatchThreshold = *threshold
	}
	if *timeout > 0 {
		cfg.BatchTimeout = *timeout
	}
	if err := eng.SetConfig(operatorAddr, cfg); err != nil {
		log.Fatal(err)
	}

	// in-memory custody for each configured asset
	for _, raw := range *assets {
		if !common.IsHexAddress(raw) {
			log.Fatalf("invalid asset address %q", raw)
		}
		asset := common.HexToAddress(raw)
		cust, err := custody.NewInMemory(common.BytesToAddress(util.RandomBytes(20)), asset)
		if err != nil {
			log.Fatal(err)
		}
		cust.SetSink(eng)
		if err := eng.RegisterCustody(operatorAddr, cust); err != nil {
			log.Fatal(err)
		}
	}

	ctx := context.Background()

	batcher, err := service.NewBatcher(eng, *tick)
	if err != nil {
		log.Fatal(err)
	}
	if err := batcher.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer batcher.Stop()

	apiSrv := service.NewAPI(eng, swapVenue, *host, *port)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer apiSrv.Stop()

	log.Infow("batchswapd running", "host", *host, "port", *port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Infow("shutting down")
	time.Sleep(200 * time.Millisecond)
}
