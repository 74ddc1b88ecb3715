package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/nonagon-chain/nonagon/app/services/node/handlers"
	chaincrypto "github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/logger"
	"github.com/nonagon-chain/nonagon/foundation/nameservice"
	"github.com/nonagon-chain/nonagon/foundation/node"
)

// build is the git version of this program. It is set using build flags
// in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			Host            string        `conf:"default:0.0.0.0:9080"`
		}
		Chain struct {
			ID             uint64 `conf:"default:1337"`
			GasLimit       uint64 `conf:"default:30000000"`
			DataDir        string `conf:"default:zblock/nonagon.db"`
			GenesisPath    string `conf:"default:zblock/genesis.json"`
			MinStake       string `conf:"default:1000000000000000000"`
			MaxActive      int    `conf:"default:21"`
			MempoolMaxSize int    `conf:"default:5000"`
		}
		Settlement struct {
			MaxBatchSize    int           `conf:"default:50000"`
			MinBatchSize    int           `conf:"default:100"`
			MaxBatchAge     time.Duration `conf:"default:2m"`
			ChallengeWindow time.Duration `conf:"default:10m"`
		}
		Sequencer struct {
			Enabled      bool          `conf:"default:false"`
			KeyPath      string        `conf:"default:zblock/accounts/sequencer1.ecdsa"`
			SlotDuration time.Duration `conf:"default:2s"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "layer-2 settlement node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account.String())
	}

	// =========================================================================
	// Node Construction

	minStake, err := parseDecimal(cfg.Chain.MinStake)
	if err != nil {
		return fmt.Errorf("parsing min stake: %w", err)
	}

	var sequencer chaincrypto.Address
	if cfg.Sequencer.Enabled {
		key, err := crypto.LoadECDSA(cfg.Sequencer.KeyPath)
		if err != nil {
			return fmt.Errorf("loading sequencer key: %w", err)
		}
		sequencer = chaincrypto.FromPublicKey(&key.PublicKey)
	}

	ev := func(format string, v ...any) {
		log.Infow(fmt.Sprintf(format, v...))
	}

	n, err := node.Open(node.Config{
		DataDir:     cfg.Chain.DataDir,
		GenesisPath: cfg.Chain.GenesisPath,
		ChainID:     cfg.Chain.ID,
		GasLimit:    cfg.Chain.GasLimit,
		MinStake:    minStake,
		MaxActive:   cfg.Chain.MaxActive,

		MempoolMaxSize: cfg.Chain.MempoolMaxSize,

		MaxBatchSize:           cfg.Settlement.MaxBatchSize,
		MinBatchSize:           cfg.Settlement.MinBatchSize,
		MaxBatchAgeSeconds:     int64(cfg.Settlement.MaxBatchAge.Seconds()),
		ChallengeWindowSeconds: int64(cfg.Settlement.ChallengeWindow.Seconds()),

		SlotDuration: cfg.Sequencer.SlotDuration,
		Host:         cfg.Web.Host,
		Sequencer:    sequencer,

		EventHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("opening node: %w", err)
	}
	defer n.Close()

	if cfg.Sequencer.Enabled {
		n.StartSequencing()
		log.Infow("startup", "status", "sequencing started", "sequencer", sequencer.String())
	}

	// =========================================================================
	// Start Debug Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	debugMux := handlers.DebugMux(handlers.MuxConfig{
		Build:    build,
		Shutdown: shutdown,
		Log:      log,
		Node:     n,
	})

	debug := http.Server{
		Addr:     cfg.Web.DebugHost,
		Handler:  debugMux,
		ErrorLog: zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)
		if err := debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	log.Infow("shutdown", "status", "shutdown started", "signal", sig)
	defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()

	if err := debug.Shutdown(ctx); err != nil {
		debug.Close()
		return fmt.Errorf("could not stop debug service gracefully: %w", err)
	}

	return nil
}

func parseDecimal(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}
