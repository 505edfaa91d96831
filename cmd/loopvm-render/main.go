package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/loopvm/loopvm"
	"github.com/loopvm/loopvm/oto"
	"github.com/loopvm/loopvm/player"
	"github.com/loopvm/loopvm/version"
	"github.com/loopvm/loopvm/vm"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	config := flag.String("config", "", "Settings file (.toml). Defaults are used when not given.")
	directory := flag.String("o", "", "Directory where to output all files. By default, files are placed in the working directory.")
	play := flag.Bool("p", false, "Play the rendered loop (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered loop as .raw file.")
	wavOut := flag.Bool("w", false, "Output the rendered loop as .wav file.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	loops := flag.Int("n", 1, "Number of times the loop is rendered.")
	disassemble := flag.Bool("d", false, "Print the programs of every voice instead of rendering.")
	convert := flag.String("convert", "", "Write the project in another format (.yml or .cbor) instead of rendering.")
	verbosity := flag.Int("verbose", -1, "Log verbosity; overrides the settings file.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("loopvm-render"))
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
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
	configureLog(settings)
	if !*rawOut && !*wavOut {
		*play = true
	}
	var audioContext loopvm.AudioContext
	if *play && !*disassemble && *convert == "" {
		var err error
		if audioContext, err = oto.NewContext(int(settings.SampleRate)); err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		project, err := loopvm.LoadProject(filename)
		if err != nil {
			return err
		}
		if *disassemble {
			return printPrograms(project)
		}
		if *convert != "" {
			name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + *convert
			return loopvm.SaveProject(filepath.Join(*directory, name), project)
		}
		s := project.Apply(settings)
		buffer, err := render(project, filepath.Dir(filename), s, *loops)
		if err != nil {
			return err
		}
		output := func(extension string, contents []byte) error {
			name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + extension
			if *directory != "" {
				if err := os.MkdirAll(*directory, os.ModePerm); err != nil {
					return fmt.Errorf("could not create output directory %v: %w", *directory, err)
				}
			}
			f := filepath.Join(*directory, name)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %w", f, err)
			}
			return nil
		}
		if *rawOut {
			raw, err := loopvm.Raw(buffer, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %w", err)
			}
			if err := output(".raw", raw); err != nil {
				return err
			}
		}
		if *wavOut {
			wav, err := loopvm.Wav(buffer, int(s.SampleRate), *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %w", err)
			}
			if err := output(".wav", wav); err != nil {
				return err
			}
		}
		if audioContext != nil {
			pos := 0
			waiter := audioContext.Play(func(buf loopvm.AudioBuffer) error {
				if pos >= len(buffer) {
					return fmt.Errorf("end of buffer")
				}
				n := copy(buf, buffer[pos:])
				clear(buf[n:])
				pos += n
				return nil
			})
			waiter.Wait()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// render plays the project's loop through a player without an audio device.
func render(project *loopvm.Project, dir string, settings loopvm.Settings, loops int) (loopvm.AudioBuffer, error) {
	p := player.NewPlayer(settings, nil)
	if err := player.NewScheduler(p, settings).Load(project, dir); err != nil {
		return nil, err
	}
	p.Transport().Seek(settings.LoopStart)
	p.SetMode(player.Play)
	coeff := settings.BPM / 60 / 4
	n := int(math.Ceil(float64(loops) * (settings.LoopEnd - settings.LoopStart) / coeff * settings.SampleRate))
	buffer := make(loopvm.AudioBuffer, n)
	p.Process(buffer)
	return buffer, nil
}

func printPrograms(project *loopvm.Project) error {
	for i := range project.Voices {
		src := &project.Voices[i]
		samples := make([][]float32, len(src.Samples))
		prog, err := vm.FromSource(src, samples)
		if err != nil {
			return err
		}
		fmt.Printf("# voice %s, out %v\n# setup\n%s# run\n%s\n", src.Name, src.Out, vm.Disassemble(prog.Setup), vm.Disassemble(prog.Run))
	}
	return nil
}

func configureLog(s loopvm.Settings) {
	var path *string
	if s.LogFile != "" {
		path = &s.LogFile
	}
	commonlog.Configure(s.LogVerbosity, path)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "loopvm command line utility for rendering and playing project files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
