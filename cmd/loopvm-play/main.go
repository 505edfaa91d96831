package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/loopvm/loopvm"
	"github.com/loopvm/loopvm/oto"
	"github.com/loopvm/loopvm/player"
	"github.com/loopvm/loopvm/rpc"
	"github.com/loopvm/loopvm/version"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	config := flag.String("config", "", "Settings file (.toml). Defaults are used when not given.")
	address := flag.String("addr", fmt.Sprintf("127.0.0.1:%d", rpc.DefaultPort), "Address of the remote control surface; empty disables it.")
	watch := flag.Duration("watch", time.Second, "Interval for checking the project file for changes; 0 disables reloading.")
	verbosity := flag.Int("verbose", -1, "Log verbosity; overrides the settings file.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("loopvm-play"))
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	settings := loopvm.DefaultSettings()
	if *config != "" {
		var err error
		if settings, err = loopvm.LoadSettings(*config); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *verbosity >= 0 {
		settings.LogVerbosity = *verbosity
	}
	var logPath *string
	if settings.LogFile != "" {
		logPath = &settings.LogFile
	}
	commonlog.Configure(settings.LogVerbosity, logPath)
	log := commonlog.GetLogger("loopvm.play")
	log.Noticef("%s starting", version.String("loopvm-play"))

	filename := flag.Arg(0)
	project, err := loopvm.LoadProject(filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	settings = project.Apply(settings)
	status := make(chan player.Status, 64)
	p := player.NewPlayer(settings, status)
	scheduler := player.NewScheduler(p, settings)
	if err := scheduler.Load(project, filepath.Dir(filename)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	transport := rpc.NewTransport(p)
	go func() {
		for s := range status {
			transport.Report(s)
		}
	}()
	if *address != "" {
		l, err := rpc.Listen(*address, transport)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer l.Close()
		log.Infof("remote control on %s", l.Addr())
	}
	audioContext, err := oto.NewContext(int(settings.SampleRate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
		os.Exit(1)
	}
	defer audioContext.Close()
	p.SetMode(player.Reset)
	stream := audioContext.Play(p.Render)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	var ticker <-chan time.Time
	if *watch > 0 {
		t := time.NewTicker(*watch)
		defer t.Stop()
		ticker = t.C
	}
	modified := modTime(filename)
loop:
	for {
		select {
		case <-interrupt:
			break loop
		case <-ticker:
			m := modTime(filename)
			if m.Equal(modified) {
				continue
			}
			modified = m
			project, err := loopvm.LoadProject(filename)
			if err != nil {
				log.Errorf("reload: %s", err)
				continue
			}
			if err := scheduler.Load(project, filepath.Dir(filename)); err != nil {
				log.Errorf("reload: %s", err)
				continue
			}
			log.Info("project reloaded")
		}
	}
	p.SetMode(player.Stop)
	time.Sleep(100 * time.Millisecond)
	stream.Close()
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "loopvm real-time player; reloads the project when it changes.\nUsage: %s [flags] project\n", os.Args[0])
	flag.PrintDefaults()
}
