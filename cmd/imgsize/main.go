// Command imgsize prints the format and pixel size of images given as URLs or
// local paths, reading only as much of each as its header needs.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/vrecan/death.v3"

	"fastsize/internal/fetch"
	"fastsize/internal/probe"
	"fastsize/internal/service"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

var imageExts = map[string]bool{".gif": true, ".png": true, ".jpg": true, ".jpeg": true, ".jfif": true, ".bmp": true}

type config struct {
	timeout     time.Duration
	maxBytes    int
	chunk       int
	jsonOut     bool
	color       string
	concurrency int
	recursive   bool
	userAgent   string
}

type cli struct {
	out    io.Writer
	errOut io.Writer
	tty    bool
	client *http.Client
}

func main() {
	ctx, abort := context.WithCancel(context.Background())
	hook := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	go hook.WaitForDeathWithFunc(abort)

	c := &cli{
		out:    colorable.NewColorableStdout(),
		errOut: colorable.NewColorableStderr(),
		tty:    term.IsTerminal(int(os.Stdout.Fd())),
	}
	os.Exit(c.run(ctx, os.Args[1:]))
}

func parseFlags(args []string, errOut io.Writer) (*config, []string, error) {
	conf := new(config)
	fs := flag.NewFlagSet("imgsize", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.DurationVarP(&conf.timeout, "timeout", "t", probe.DefaultTimeout, "per-image timeout")
	fs.IntVar(&conf.maxBytes, "max-bytes", probe.DefaultMaxBytes, "give up once a header needs more bytes than this")
	fs.IntVar(&conf.chunk, "chunk", fetch.DefaultChunkSize, "bytes per read or range request")
	fs.BoolVar(&conf.jsonOut, "json", false, "print one JSON object per image")
	fs.StringVar(&conf.color, "color", "auto", "colorize output: auto, always or never")
	fs.IntVarP(&conf.concurrency, "concurrency", "c", 8, "images probed in parallel")
	fs.BoolVarP(&conf.recursive, "recursive", "r", false, "descend into subdirectories")
	fs.StringVar(&conf.userAgent, "user-agent", fetch.DefaultUserAgent, "User-Agent for HTTP requests")
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage:\n\t%s [options] url|file|dir ...\n\nOptions:\n", filepath.Base(os.Args[0]))
		fmt.Fprint(errOut, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() == 0 {
		return nil, nil, errors.New("no input given")
	}
	if conf.timeout <= 0 {
		return nil, nil, errors.Errorf("invalid timeout: %v", conf.timeout)
	}
	if conf.maxBytes <= 0 || conf.chunk <= 0 || conf.concurrency <= 0 {
		return nil, nil, errors.New("max-bytes, chunk and concurrency must be positive")
	}
	switch conf.color {
	case "auto", "always", "never":
	default:
		return nil, nil, errors.New("invalid color mode: " + conf.color)
	}
	return conf, fs.Args(), nil
}

func (c *cli) run(ctx context.Context, args []string) int {
	conf, inputs, err := parseFlags(args, c.errOut)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	} else if err != nil {
		fmt.Fprintln(c.errOut, err)
		return exitUsage
	}

	out := c.out
	if conf.color == "never" || (conf.color == "auto" && !c.tty) {
		out = colorable.NewNonColorable(c.out)
	}

	targets := expand(inputs, conf.recursive)
	client := c.client
	if client == nil {
		client = fetch.NewClient(conf.timeout)
	}
	svc := service.New(client, nil, nil, service.Options{
		Timeout:   conf.timeout,
		MaxBytes:  conf.maxBytes,
		ChunkSize: conf.chunk,
		UserAgent: conf.userAgent,
	})

	var g errgroup.Group
	g.SetLimit(conf.concurrency)
	for i := range targets {
		t := &targets[i]
		if t.err != nil {
			continue
		}
		g.Go(func() error {
			if t.remote {
				t.res, t.err = svc.Probe(ctx, t.name)
			} else {
				t.res, t.err = probeFile(ctx, t.name, conf)
			}
			return nil
		})
	}
	g.Wait()

	code := exitOK
	for _, t := range targets {
		if t.err != nil {
			code = exitFailed
		}
		if conf.jsonOut {
			printJSON(out, t)
		} else {
			printText(out, t)
		}
	}
	return code
}

func probeFile(ctx context.Context, path string, conf *config) (service.Result, error) {
	src, err := fetch.OpenFile(path, conf.chunk)
	if err != nil {
		return service.Result{}, err
	}
	res, err := probe.Probe(ctx, src, probe.WithTimeout(conf.timeout), probe.WithMaxBytes(conf.maxBytes))
	if err != nil {
		return service.Result{}, err
	}
	return service.Result{
		URL:       path,
		Format:    res.Format,
		Width:     res.Dimensions.Width,
		Height:    res.Dimensions.Height,
		BytesRead: res.BytesRead,
	}, nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}
