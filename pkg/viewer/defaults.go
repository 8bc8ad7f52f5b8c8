// Frontline Perception System
// Copyright (C) 2020-2025 TurbineOne LLC
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package viewer

import (
	"fmt"

	"github.com/nareix/joy4/av"

	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// SequenceDefaults are the parameters new sequences start with.
type SequenceDefaults struct { //nolint:govet // Don't care about alignment.
	Width              int                `yaml:"width" env:"WIDTH" doc:"Default sequence width in pixels"`
	Height             int                `yaml:"height" env:"HEIGHT" doc:"Default sequence height in pixels"`
	FrameRate          rational.Rational  `yaml:"frameRate" env:"FRAME_RATE" doc:"Default frame rate, e.g. 30000/1001"`
	PixelAspect        rational.Rational  `yaml:"pixelAspect" env:"PIXEL_ASPECT" doc:"Default pixel aspect ratio"`
	Interlacing        params.Interlacing `yaml:"interlacing" env:"INTERLACING" doc:"One of: none, top, bottom"`
	AudioRate          int                `yaml:"audioRate" env:"AUDIO_RATE" doc:"Default audio sample rate in Hz"`
	AudioLayout        params.Layout      `yaml:"audioLayout" env:"AUDIO_LAYOUT" doc:"Default channel layout, e.g. stereo"`
	OfflinePixelFormat params.PixelFormat `yaml:"offlinePixelFormat" env:"OFFLINE_PIXEL_FORMAT" doc:"Pixel format for offline renders"`
}

// SequenceDefaultsDefault returns 1080p 29.97 with 48kHz stereo.
func SequenceDefaultsDefault() SequenceDefaults {
	return SequenceDefaults{
		Width:              1920, //nolint:mnd // 1080p.
		Height:             1080, //nolint:mnd // 1080p.
		FrameRate:          rational.New(30000, 1001), //nolint:mnd // NTSC.
		PixelAspect:        rational.FromInt(1),
		Interlacing:        params.InterlaceNone,
		AudioRate:          48000, //nolint:mnd // 48kHz.
		AudioLayout:        params.Layout(av.CH_STEREO),
		OfflinePixelFormat: params.FormatF16,
	}
}

// Validate reports the first unusable default.
func (d SequenceDefaults) Validate() error {
	switch {
	case d.Width <= 0 || d.Height <= 0:
		return fmt.Errorf("invalid sequence size %dx%d", d.Width, d.Height)
	case d.FrameRate.Sign() <= 0:
		return fmt.Errorf("invalid frame rate %v", d.FrameRate)
	case d.PixelAspect.Sign() <= 0:
		return fmt.Errorf("invalid pixel aspect %v", d.PixelAspect)
	case d.AudioRate <= 0:
		return fmt.Errorf("invalid audio rate %d", d.AudioRate)
	case !d.OfflinePixelFormat.IsValid():
		return fmt.Errorf("invalid offline pixel format %v", d.OfflinePixelFormat)
	}

	return nil
}

// VideoParams returns the video parameters d describes.
func (d SequenceDefaults) VideoParams() params.VideoParams {
	return params.NewVideoParams(d.Width, d.Height, d.FrameRate.Flipped(), d.OfflinePixelFormat,
		params.InternalChannelCount, d.PixelAspect, d.Interlacing,
		params.GenerateAutoDivider(d.Width, d.Height))
}

// AudioParams returns the audio parameters d describes.
func (d SequenceDefaults) AudioParams() params.AudioParams {
	return params.NewAudioParams(d.AudioRate, d.AudioLayout.ChannelLayout(), params.InternalSampleFormat)
}

// SetDefaultParameters sets the primary streams from d. The primary streams
// must exist.
func (o *Output) SetDefaultParameters(d SequenceDefaults) error {
	if err := o.SetVideoParams(d.VideoParams(), 0); err != nil {
		return fmt.Errorf("setting default video params: %w", err)
	}

	if err := o.SetAudioParams(d.AudioParams(), 0); err != nil {
		return fmt.Errorf("setting default audio params: %w", err)
	}

	return nil
}

// SetParametersFromFootage matches the primary streams to footage, item by
// item. Each footage's first motion video stream sets size and frame rate;
// stills before it only set size. Each footage's first audio stream sets the
// audio format. Later footage wins.
func (o *Output) SetParametersFromFootage(d SequenceDefaults, footage []*Output) error {
	for _, f := range footage {
		for _, s := range f.EnabledVideoStreams() {
			foundVideo := s.Type != params.VideoTypeStill

			timeBase := o.VideoParams(0).TimeBase
			if foundVideo {
				timeBase = s.FrameRateAsTimeBase()
			}

			p := params.NewVideoParams(s.Width, s.Height, timeBase, d.OfflinePixelFormat,
				params.InternalChannelCount, s.PixelAspect, s.Interlacing,
				params.GenerateAutoDivider(s.Width, s.Height))

			if err := o.SetVideoParams(p, 0); err != nil {
				return fmt.Errorf("setting video params from %s: %w", f.ID(), err)
			}

			if foundVideo {
				break
			}
		}

		if audio := f.EnabledAudioStreams(); len(audio) > 0 {
			s := audio[0]
			p := params.NewAudioParams(s.SampleRate, s.Layout, params.InternalSampleFormat)

			if err := o.SetAudioParams(p, 0); err != nil {
				return fmt.Errorf("setting audio params from %s: %w", f.ID(), err)
			}
		}
	}

	return nil
}
