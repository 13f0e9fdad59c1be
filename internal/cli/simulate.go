package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"livecheck/internal/liveness/geometry"
	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/session"
	id "livecheck/pkg/domain"
)

// Script is a recorded capture: the viewport, an optional gesture order and
// the detector output for each frame in arrival order.
type Script struct {
	ViewportWidth float64         `yaml:"viewport_width"`
	Gestures      []string        `yaml:"gestures"`
	Frames        []ScriptedFrame `yaml:"frames"`
}

type ScriptedFrame struct {
	// Repeat replays the frame this many times. Zero means once.
	Repeat int          `yaml:"repeat"`
	Faces  []ScriptFace `yaml:"faces"`
}

type ScriptFace struct {
	Bounds                  [4]float64 `yaml:"bounds"` // min_x, min_y, width, height
	Roll                    float64    `yaml:"roll"`
	Yaw                     float64    `yaml:"yaw"`
	LeftEyeOpenProbability  float64    `yaml:"left_eye"`
	RightEyeOpenProbability float64    `yaml:"right_eye"`
	SmilingProbability      float64    `yaml:"smile"`
}

func (f ScriptFace) measurement() models.FaceMeasurement {
	return models.FaceMeasurement{
		Bounds: models.Rect{
			MinX:   f.Bounds[0],
			MinY:   f.Bounds[1],
			Width:  f.Bounds[2],
			Height: f.Bounds[3],
		},
		RollAngle:               f.Roll,
		YawAngle:                f.Yaw,
		LeftEyeOpenProbability:  f.LeftEyeOpenProbability,
		RightEyeOpenProbability: f.RightEyeOpenProbability,
		SmilingProbability:      f.SmilingProbability,
	}
}

// LoadScript parses a YAML capture script.
func LoadScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if s.ViewportWidth == 0 {
		s.ViewportWidth = geometry.PreviewSide
	}
	if s.ViewportWidth < geometry.PreviewSide {
		return nil, fmt.Errorf("viewport_width must be at least %.0f", geometry.PreviewSide)
	}
	return &s, nil
}

// SimulationResult summarises a replay.
type SimulationResult struct {
	Frames   int
	Verdicts map[models.Verdict]int
	Final    models.SequenceState
}

// Simulate replays script through a fresh session with throttling and the
// completion delay disabled. One line per handled frame goes to lines; the
// progress bar is drawn on progress. Replay stops at completion.
func Simulate(ctx context.Context, script *Script, lines, progress io.Writer) (*SimulationResult, error) {
	order := models.DefaultGestureOrder
	if len(script.Gestures) > 0 {
		parsed, err := models.ParseGestureOrder(script.Gestures)
		if err != nil {
			return nil, err
		}
		order = parsed
	}

	sess := session.New(id.NewSessionID(), id.UserID{},
		session.WithGestureOrder(order),
		session.WithPreview(geometry.PreviewRect(script.ViewportWidth)),
		session.WithMinFrameInterval(0),
		session.WithCompletionDelay(0),
	)

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription(models.PromptFor(sess.Snapshot()).Headline),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
	)

	result := &SimulationResult{Verdicts: map[models.Verdict]int{}}
	for _, frame := range script.Frames {
		faces := make([]models.FaceMeasurement, 0, len(frame.Faces))
		for _, f := range frame.Faces {
			faces = append(faces, f.measurement())
		}
		for range max(frame.Repeat, 1) {
			res, err := sess.HandleFrame(ctx, models.Frame{Faces: faces})
			if err != nil {
				return nil, err
			}
			result.Frames++
			result.Verdicts[res.Verdict]++

			desc := promptText(models.PromptFor(res.State))
			writeFrameLine(lines, result.Frames, res.Verdict, res.State, desc)
			bar.Describe(desc)
			_ = bar.Set(int(res.State.ProgressFill))

			if res.State.Complete {
				_ = bar.Finish()
				fmt.Fprintln(progress)
				result.Final = res.State
				return result, nil
			}
		}
	}
	fmt.Fprintln(progress)
	result.Final = sess.Snapshot()
	return result, nil
}

func promptText(p models.Prompt) string {
	if p.Action == "" {
		return p.Headline
	}
	return p.Headline + " " + p.Action
}

func writeFrameLine(w io.Writer, n int, verdict models.Verdict, state models.SequenceState, prompt string) {
	fmt.Fprintf(w, "frame %d: verdict=%s detected=%s too_big=%s step=%d/%d progress=%.2f prompt=%q\n",
		n, verdict, state.FaceDetected, state.FaceTooBig,
		state.CurrentIndex, len(state.GestureOrder), state.ProgressFill, prompt)
}

func newSimulateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <script.yaml>",
		Short: "Replay a scripted frame capture through the gesture engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			script, err := LoadScript(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			res, err := Simulate(cmd.Context(), script, out, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "frames: %d\n", res.Frames)
			for _, v := range []models.Verdict{models.VerdictNoFace, models.VerdictFaceTooBig, models.VerdictFaceOK, models.VerdictGestureSatisfied} {
				fmt.Fprintf(out, "  %-18s %d\n", v, res.Verdicts[v])
			}
			fmt.Fprintf(out, "progress: %.2f\n", res.Final.ProgressFill)
			if !res.Final.Complete {
				fmt.Fprintln(out, "result: incomplete")
				return fmt.Errorf("sequence incomplete after %d frames", res.Frames)
			}
			fmt.Fprintln(out, "result: complete")
			return nil
		},
	}
}
