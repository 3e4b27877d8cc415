// Command dxcore is the per-channel signal-detection daemon of spec.md
// §5: it accepts a control connection, joins the multicast group
// carrying one wide channel's sample packets, drives the DFB/
// spectrometry/detection pipeline for the configured activity's
// duration, and logs the number of classified candidates; candidates are
// not sent back over the control connection.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/opensonata/dxcore/internal/archive"
	"github.com/opensonata/dxcore/internal/channelctx"
	"github.com/opensonata/dxcore/internal/config"
	"github.com/opensonata/dxcore/internal/dfb"
	"github.com/opensonata/dxcore/internal/logging"
	"github.com/opensonata/dxcore/internal/model"
	"github.com/opensonata/dxcore/internal/spectrometer"
	"github.com/opensonata/dxcore/internal/transport"
	"github.com/opensonata/dxcore/internal/wire"
)

// dnsSDServiceType announces this core the way the teacher's dns_sd.go
// announces its KISS TCP service, using the same pure-Go brutella/dnssd
// package so an operator's console can discover running cores without
// already knowing a control-channel address.
const dnsSDServiceType = "_sonata-dx._tcp"

func main() {
	var (
		controlAddr   = pflag.StringP("control-addr", "c", ":7901", "Control-channel listen address.")
		metricsAddr   = pflag.StringP("metrics-addr", "m", ":9101", "Prometheus metrics listen address.")
		multicastAddr = pflag.StringP("multicast-group", "g", "239.0.0.1:7902", "Sample-packet multicast group:port.")
		multicastIf   = pflag.StringP("multicast-iface", "i", "", "Network interface to join the multicast group on (empty: system default).")
		siteFile      = pflag.StringP("site-file", "s", "site.yaml", "Observing-site metadata file.")
		paramsFile    = pflag.StringP("activity-params", "a", "activity.yaml", "Activity parameters file (bench/replay mode).")
		coeffFile     = pflag.StringP("dfb-coeff", "f", "dfb.coeff", "DFB filter coefficient file.")
		dnsSDName     = pflag.StringP("dns-sd-name", "n", "", "DNS-SD service instance name (empty: hostname-derived).")
		noDNSSD       = pflag.BoolP("no-dns-sd", "N", false, "Disable DNS-SD service announcement.")
		dumpPattern   = pflag.StringP("archive-dump-pattern", "d", "archive-%Y%m%d-%H%M%S.raw", "strftime pattern for REQUEST_ARCHIVE_DATA dump filenames.")
		logLevel      = pflag.StringP("log-level", "l", "info", "Log level: debug, info, warn, error.")
	)
	pflag.Parse()

	lg := logging.New(parseLevel(*logLevel))

	site, err := loadSite(*siteFile)
	if err != nil {
		lg.Fatal("loading site file", "err", err)
	}
	params, err := config.Load(*paramsFile)
	if err != nil {
		lg.Fatal("loading activity parameters", "err", err)
	}
	cf, err := loadCoeffFile(*coeffFile)
	if err != nil {
		lg.Fatal("loading DFB coefficients", "err", err)
	}

	reg := prometheus.NewRegistry()
	metrics := spectrometer.NewMetrics(reg)
	go serveMetrics(lg, reg, *metricsAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !*noDNSSD {
		announceDNSSD(lg, *dnsSDName, *controlAddr)
	}

	numSub := params.NumSubchannels
	if numSub < 1 {
		numSub = 1
	}
	activity := model.NewActivity(1, numSub, params.SamplesPerHF)
	cctx := channelctx.New(lg, activity, params, site, metrics)

	daddFFTLen := params.Resolutions[params.DaddResolutionIndex].FFTLen
	dfbLeft, err := dfb.NewFilter(cf, daddFFTLen)
	if err != nil {
		lg.Fatal("configuring left DFB filter", "err", err)
	}
	dfbRight, err := dfb.NewFilter(cf, daddFFTLen)
	if err != nil {
		lg.Fatal("configuring right DFB filter", "err", err)
	}
	cctx.DFBLeft = dfbLeft
	cctx.DFBRight = dfbRight

	control := transport.NewControlServer(lg, makeControlHandler(lg, cctx, *dumpPattern))
	go func() {
		if err := control.Serve(ctx, *controlAddr); err != nil {
			lg.Error("control server exited", "err", err)
		}
	}()
	defer control.Close()

	mc, err := transport.JoinMulticast(*multicastAddr, *multicastIf)
	if err != nil {
		lg.Fatal("joining multicast group", "err", err)
	}
	defer mc.Close()

	lg.Info("dxcore ready", "control", *controlAddr, "multicast", *multicastAddr)
	runIngest(ctx, lg, cctx, mc)
}

// runIngest drains sample packets from the multicast receiver into the
// channel context until ctx is cancelled. A DATA_COLLECTION_COMPLETE
// control message (handled in makeControlHandler) triggers Finalize;
// a full control-driven REQUEST_ARCHIVE_DATA/candidate-reporting round
// trip back to the operator console is cmd/dxcore's one remaining gap,
// noted in DESIGN.md.
func runIngest(ctx context.Context, lg *logging.Logger, cctx *channelctx.Context, mc *transport.MulticastReceiver) {
	for {
		pkt, err := mc.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			lg.Warn("multicast receive error", "err", err)
			continue
		}
		if err := cctx.OnPacket(pkt); err != nil {
			lg.Error("packet ingest error", "err", err)
		}
	}
}

// makeControlHandler dispatches control-channel messages relevant to
// activity lifecycle. CONFIGURE_DX/DX_TUNED parameter bodies are not
// decoded here: this core is driven from the YAML activity-parameters
// file for bench/replay operation, the same simplification documented
// on config.ActivityParams.TunedFreqMHz/ChannelWidthMHz; STOP_DX_ACTIVITY
// and SHUTDOWN_DX are honored so an operator console can still command
// this core's lifecycle.
func makeControlHandler(lg *logging.Logger, cctx *channelctx.Context, dumpPattern string) transport.ControlHandler {
	return func(conn net.Conn, msg wire.Message) error {
		switch msg.Header.Code {
		case wire.MsgDataCollectionComplete:
			cctx.Finalize(nil, nil, nil)
			lg.Info("activity finalized", "candidates", len(cctx.Activity.Candidates))
		case wire.MsgRequestArchiveData:
			name, err := archive.FormatDumpFilename(dumpPattern, time.Now())
			if err != nil {
				return err
			}
			lg.Info("archive data requested", "dumpFile", name)
		case wire.MsgStopDxActivity, wire.MsgShutdownDx:
			lg.Info("stop requested", "code", msg.Header.Code)
			return conn.Close()
		default:
			lg.Debug("unhandled control message", "code", msg.Header.Code)
		}
		return nil
	}
}

func loadSite(path string) (config.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.Site{}, err
	}
	defer f.Close()
	var s config.Site
	if err := yaml.NewDecoder(f).Decode(&s); err != nil {
		return config.Site{}, err
	}
	return s, nil
}

func loadCoeffFile(path string) (*dfb.CoeffFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dfb.ReadCoeffFile(f)
}

func serveMetrics(lg *logging.Logger, reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})) //nolint:exhaustruct
	lg.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec
		lg.Error("metrics server exited", "err", err)
	}
}

func announceDNSSD(lg *logging.Logger, name, controlAddr string) {
	if name == "" {
		hostname, _ := os.Hostname()
		name = fmt.Sprintf("dxcore-%s", hostname)
	}
	port := portFromAddr(controlAddr)
	cfg := dnssd.Config{Name: name, Type: dnsSDServiceType, Port: port} //nolint:exhaustruct
	sv, err := dnssd.NewService(cfg)
	if err != nil {
		lg.Error("dns-sd: creating service", "err", err)
		return
	}
	rp, err := dnssd.NewResponder()
	if err != nil {
		lg.Error("dns-sd: creating responder", "err", err)
		return
	}
	if _, err := rp.Add(sv); err != nil {
		lg.Error("dns-sd: adding service", "err", err)
		return
	}
	go func() {
		if err := rp.Respond(context.Background()); err != nil {
			lg.Error("dns-sd: responder error", "err", err)
		}
	}()
	lg.Info("dns-sd: announcing", "name", name, "type", dnsSDServiceType, "port", port)
}

func portFromAddr(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
