package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	easydk "github.com/cambricon/easydk-go"
	"github.com/cambricon/easydk-go/internal/adminhttp"
	"github.com/cambricon/easydk-go/internal/config"
	"github.com/cambricon/easydk-go/internal/logging"
)

var (
	runGraphPath  string
	runInputPath  string
	runOutputPath string
	runSession    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a decode -> infer -> osd -> encode pipeline from a config file",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runGraphPath, "graph", "", "optional YAML graph topology (see easydk.GraphSpec); defaults to a single decode/infer/osd/encode chain")
	runCmd.Flags().StringVar(&runInputPath, "input", "", "path to a raw elementary stream file fed to the decoder as one packet")
	runCmd.Flags().StringVar(&runOutputPath, "output", "", "path encoded packets are appended to; when empty, each packet is only logged at debug level")
	runCmd.Flags().StringVar(&runSession, "session", "", "name of the [sessions.<name>] config entry to route inference through")
}

// passthroughBackend stands in for real device inference math: it
// copies each input surface's bytes into the matching output surface
// unchanged.
type passthroughBackend struct{}

func (passthroughBackend) Forward(inputs, outputs []*easydk.Surface) error {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil
	}
	in, out := inputs[0], outputs[0]
	for i := 0; i < in.BatchSize() && i < out.BatchSize(); i++ {
		sb, err := in.ImageMirror(i)
		if err != nil {
			return err
		}
		db, err := out.ImageMirror(i)
		if err != nil {
			return err
		}
		n := len(sb)
		if len(db) < n {
			n = len(db)
		}
		copy(db[:n], sb[:n])
	}
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.Default().WithComponent("cmd.run")

	if runInputPath == "" {
		return fmt.Errorf("--input is required")
	}

	var sess *easydk.Session
	if runSession != "" {
		sc, ok := cfg.Sessions[runSession]
		if !ok {
			return fmt.Errorf("no [sessions.%s] entry in config", runSession)
		}
		cache := easydk.NewModelCache(easydk.FileFetch, cfg.Models.CacheLimit)
		info, err := cache.LoadModel(context.Background(), sc.ModelKey)
		if err != nil {
			return fmt.Errorf("load model for session %s: %w", runSession, err)
		}
		sess, err = easydk.CreateSession(easydk.SessionDescriptor{
			DeviceID: sc.DeviceID, ModelInfo: info, Backend: passthroughBackend{},
			EngineNum: sc.EngineNum, BatchPolicy: sc.Policy(), BatchDim: sc.BatchDim, BatchTimeout: sc.Timeout(),
		})
		if err != nil {
			return fmt.Errorf("create session %s: %w", runSession, err)
		}
		defer sess.Destroy(context.Background())
	}

	var admin *http.Server
	if cfg.Admin.Enabled {
		admin = &http.Server{Addr: cfg.Admin.Addr(), Handler: adminhttp.NewServer().Handler()}
		go func() {
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("admin server stopped", "error", err)
			}
		}()
		defer admin.Close()
		log.Info("admin server listening", "addr", cfg.Admin.Addr())
	}

	g, src, err := buildRunGraph(cfg, sess)
	if err != nil {
		return err
	}

	if err := g.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	raw, err := os.ReadFile(runInputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	go func() {
		if err := src.Feed(&easydk.CodecPacket{Bits: raw}, 1000); err != nil {
			log.Warn("feed failed", "error", err)
		}
		if err := src.FeedEOS(1000); err != nil {
			log.Warn("feed eos failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	select {
	case <-ctx.Done():
		g.Stop()
	case <-waitDrained(g, drainCtx):
	}

	return g.Shutdown(drainCtx)
}

// waitDrained runs Graph.WaitForStop in the background and closes the
// returned channel once it returns, so runPipeline can select between a
// drain completing naturally and an operator-requested interrupt.
func waitDrained(g *easydk.Graph, ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = g.WaitForStop(ctx)
		close(done)
	}()
	return done
}

// runStreamDims are the decode/encode surface dimensions used by the
// CLI's default graph; a real deployment would read these from the
// stream being decoded.
const (
	runStreamWidth  = 1920
	runStreamHeight = 1080
	runPoolCapacity = 16
)

// buildRunGraph wires a single decode/infer/osd/encode chain when
// --graph is unset, or defers to easydk.BuildGraph with this process's
// module factories when a topology file is given. It returns the
// decode source so the caller can Feed/FeedEOS it directly; with a
// custom --graph, that is whichever decode-typed source the factory
// constructs first.
func buildRunGraph(cfg config.Config, sess *easydk.Session) (*easydk.Graph, *easydk.DecodeSource, error) {
	pool, err := easydk.NewSurfacePool(easydk.SurfaceParams{
		BatchSize: 1, Width: runStreamWidth, Height: runStreamHeight,
		Format: easydk.FormatNV12, Alignment: 64, MemType: easydk.MemPinnedHost,
	}, runPoolCapacity)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate decode pool: %w", err)
	}

	onPacket := packetWriter(runOutputPath)

	if runGraphPath == "" {
		src := easydk.NewDecodeSource(0, pool, easydk.DecoderParams{
			MaxWidth: runStreamWidth, MaxHeight: runStreamHeight,
			ColorFormat: easydk.FormatNV12, SurfTimeoutMs: 1000,
		})
		overlay := &easydk.OSDModule{}
		sink := &easydk.EncodeSink{CodecType: easydk.CodecH264, OnPacket: onPacket}

		g := easydk.NewGraph()
		if err := g.AddSource("decode", src); err != nil {
			return nil, nil, err
		}
		prev := "decode"
		if sess != nil {
			infer := &easydk.InferModule{Session: sess, Tag: "run"}
			if err := g.AddModule("infer", infer, 1); err != nil {
				return nil, nil, err
			}
			if err := g.AddLink(prev, "infer"); err != nil {
				return nil, nil, err
			}
			prev = "infer"
		}
		if err := g.AddModule("osd", overlay, 1); err != nil {
			return nil, nil, err
		}
		if err := g.AddLink(prev, "osd"); err != nil {
			return nil, nil, err
		}
		if err := g.AddModule("encode", sink, 1); err != nil {
			return nil, nil, err
		}
		if err := g.AddLink("osd", "encode"); err != nil {
			return nil, nil, err
		}
		return g, src, nil
	}

	spec, err := easydk.LoadGraphSpec(runGraphPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load graph spec: %w", err)
	}

	var captured *easydk.DecodeSource
	factories := map[string]easydk.ModuleFactory{
		"decode": func(ns easydk.NodeSpec) (easydk.Module, error) {
			src := easydk.NewDecodeSource(0, pool, easydk.DecoderParams{
				MaxWidth: runStreamWidth, MaxHeight: runStreamHeight,
				ColorFormat: easydk.FormatNV12, SurfTimeoutMs: 1000,
			})
			if captured == nil {
				captured = src
			}
			return src, nil
		},
		"inferadapter": func(ns easydk.NodeSpec) (easydk.Module, error) {
			if sess == nil {
				return nil, fmt.Errorf("node %s needs --session, none given", ns.Name)
			}
			return &easydk.InferModule{Session: sess, Tag: ns.Name}, nil
		},
		"osd": func(easydk.NodeSpec) (easydk.Module, error) {
			return &easydk.OSDModule{}, nil
		},
		"encode": func(easydk.NodeSpec) (easydk.Module, error) {
			return &easydk.EncodeSink{CodecType: easydk.CodecH264, OnPacket: onPacket}, nil
		},
	}

	g, err := easydk.BuildGraph(spec, factories)
	if err != nil {
		return nil, nil, err
	}
	if captured == nil {
		return nil, nil, fmt.Errorf("graph spec %s defines no decode-typed source", runGraphPath)
	}
	return g, captured, nil
}

// packetWriter returns an encoded-packet callback that appends each
// packet's bytes to path, or only logs them when path is empty.
func packetWriter(path string) func(easydk.EncodedPacket) {
	log := logging.Default().WithComponent("cmd.run")
	if path == "" {
		return func(p easydk.EncodedPacket) {
			log.Debug("encoded packet", "stream_id", p.StreamID, "pts", p.PTS, "bytes", len(p.Bytes))
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warn("failed to open output file, packets will only be logged", "path", path, "error", err)
		return func(p easydk.EncodedPacket) {
			log.Debug("encoded packet", "stream_id", p.StreamID, "pts", p.PTS, "bytes", len(p.Bytes))
		}
	}
	return func(p easydk.EncodedPacket) {
		if _, err := f.Write(p.Bytes); err != nil {
			log.Warn("write packet failed", "error", err)
		}
	}
}
