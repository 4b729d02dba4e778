package multicopter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Filename     string
	Output       string // output directory, defaults to the working directory
	AsCSV        bool
	Timestamp    bool
	CSVAppend    func(r Record) []string // Custom columns
	CSVAppendHdr func() []string         // Header for the custom columns
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV
}

// Path returns the CSV file name for this export.
func (c ExportConfig) Path() string {
	name := fmt.Sprintf("states-%s.csv", c.Filename)
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("states-%s-%d-%02d-%02dT%02d.%02d.%02d.csv", c.Filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.Output, name)
}

// Record is one exported data point.
type Record struct {
	Time     float64 // s
	State    State
	Commands []float64
}

var csvHeader = []string{"time", "x", "y", "z", "qw", "qx", "qy", "qz", "vx", "vy", "vz", "wx", "wy", "wz", "roll", "pitch", "yaw"}

func (r Record) csv() []string {
	s := r.State
	roll, pitch, yaw := s.Attitude()
	vals := []float64{
		r.Time,
		s.Position[0], s.Position[1], s.Position[2],
		s.Orientation.W, s.Orientation.V[0], s.Orientation.V[1], s.Orientation.V[2],
		s.Velocity[0], s.Velocity[1], s.Velocity[2],
		s.AngularVelocity[0], s.AngularVelocity[1], s.AngularVelocity[2],
		Rad2deg180(roll), Rad2deg180(pitch), Rad2deg180(yaw),
	}
	rec := make([]string, 0, len(vals)+len(r.Commands))
	for _, v := range vals {
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	for _, c := range r.Commands {
		rec = append(rec, strconv.FormatFloat(c, 'g', -1, 64))
	}
	return rec
}

// StreamStates writes the records of the channel as CSV until it is closed.
// numCmds is the number of command columns.
func StreamStates(w io.Writer, conf ExportConfig, numCmds int, stateChan <-chan Record) error {
	cw := csv.NewWriter(w)
	hdr := append([]string(nil), csvHeader...)
	for i := 0; i < numCmds; i++ {
		hdr = append(hdr, fmt.Sprintf("cmd%d", i))
	}
	if conf.CSVAppendHdr != nil {
		hdr = append(hdr, conf.CSVAppendHdr()...)
	}
	var err error
	if err = cw.Write(hdr); err != nil {
		err = fmt.Errorf("writing header: %w", err)
	}
	for rec := range stateChan {
		if err != nil {
			continue // drain so the producer never blocks
		}
		row := rec.csv()
		if conf.CSVAppend != nil {
			row = append(row, conf.CSVAppend(rec)...)
		}
		err = cw.Write(row)
	}
	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	return err
}

// Recorder streams records to a writer from a dedicated goroutine.
type Recorder struct {
	histChan chan Record
	path     string
	closer   io.Closer
	wg       sync.WaitGroup
	err      error
	closed   bool
}

// NewRecorder creates the CSV file described by conf and starts streaming to it.
func NewRecorder(conf ExportConfig, numCmds int) (*Recorder, error) {
	if conf.IsUseless() {
		return nil, fmt.Errorf("export of %s does not write anything", conf.Filename)
	}
	if conf.Output != "" {
		if err := os.MkdirAll(conf.Output, 0755); err != nil {
			return nil, err
		}
	}
	path := conf.Path()
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := NewRecorderTo(f, conf, numCmds)
	r.path = path
	r.closer = f
	return r, nil
}

// NewRecorderTo streams the records to w. Close does not close w.
func NewRecorderTo(w io.Writer, conf ExportConfig, numCmds int) *Recorder {
	r := &Recorder{histChan: make(chan Record, 1000)} // a 1k entry buffer
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.err = StreamStates(w, conf, numCmds, r.histChan)
	}()
	return r
}

// Path returns the file written to, if any.
func (r *Recorder) Path() string {
	return r.path
}

// Record queues a data point.
func (r *Recorder) Record(t float64, s State, cmds []float64) {
	r.histChan <- Record{Time: t, State: s, Commands: append([]float64(nil), cmds...)}
}

// Observe queues the current data point of a simulator.
func (r *Recorder) Observe(sim *Simulator) {
	r.Record(sim.Time(), sim.State(), sim.Commands())
}

// Close waits for every queued record to be written.
func (r *Recorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	close(r.histChan)
	r.wg.Wait()
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && r.err == nil {
			r.err = err
		}
	}
	return r.err
}
