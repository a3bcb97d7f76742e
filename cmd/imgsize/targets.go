package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"fastsize/internal/probe"
	"fastsize/internal/service"
)

type target struct {
	name   string
	remote bool
	res    service.Result
	err    error
}

// expand turns command line inputs into probe targets. Directories yield the
// image files they contain, sorted by path.
func expand(inputs []string, recursive bool) []target {
	var targets []target
	for _, in := range inputs {
		if isURL(in) {
			targets = append(targets, target{name: in, remote: true})
			continue
		}
		in = filepath.Clean(in)
		stat, err := os.Stat(in)
		if err != nil {
			targets = append(targets, target{name: in, err: errors.Wrapf(err, "stat <%s> failed", in)})
			continue
		}
		if !stat.IsDir() {
			targets = append(targets, target{name: in})
			continue
		}
		targets = append(targets, walkDir(in, recursive)...)
	}
	return targets
}

func walkDir(root string, recursive bool) []target {
	var targets []target
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(pathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if pathname != root && !recursive {
					return godirwalk.SkipThis
				}
				return nil
			}
			if imageExts[strings.ToLower(filepath.Ext(pathname))] {
				targets = append(targets, target{name: pathname})
			}
			return nil
		},
		ErrorCallback: func(pathname string, err error) godirwalk.ErrorAction {
			targets = append(targets, target{name: pathname, err: errors.Wrapf(err, "walk on <%s> failed", pathname)})
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		targets = append(targets, target{name: root, err: errors.Wrapf(err, "can not walk directory <%s>", root)})
	}
	return targets
}

type jsonLine struct {
	Target    string       `json:"target"`
	Format    probe.Format `json:"format,omitempty"`
	Width     uint32       `json:"width,omitempty"`
	Height    uint32       `json:"height,omitempty"`
	BytesRead int          `json:"bytes_read,omitempty"`
	Error     string       `json:"error,omitempty"`
	Kind      string       `json:"kind,omitempty"`
}

func printJSON(w io.Writer, t target) {
	line := jsonLine{Target: t.name}
	if t.err != nil {
		line.Error = t.err.Error()
		if k := probe.KindOf(t.err); k != 0 {
			line.Kind = k.String()
		}
	} else {
		line.Format = t.res.Format
		line.Width = t.res.Width
		line.Height = t.res.Height
		line.BytesRead = t.res.BytesRead
	}
	json.NewEncoder(w).Encode(line)
}

func printText(w io.Writer, t target) {
	if t.err != nil {
		color := colorRed
		if probe.KindOf(t.err) == probe.KindUnsupportedFormat {
			color = colorYellow
		}
		fmt.Fprintf(w, "%s\t%serror: %v%s\n", t.name, color, t.err, colorReset)
		return
	}
	fmt.Fprintf(w, "%s\t%s%s\t%dx%d%s\n", t.name, colorGreen, t.res.Format, t.res.Width, t.res.Height, colorReset)
}
