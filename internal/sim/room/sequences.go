package room

import (
	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/texts"
	"starroom.ai/internal/sim/timeline"
)

const (
	introSequence  = "room.intro"
	endingSequence = "room.ending"
)

// Overlay element ids.
const (
	overlayIntro       = "intro"
	overlayIntroTitle  = "intro.title"
	overlayIntroStory  = "intro.story"
	overlayIntroButton = "intro.button"
	overlayEndText     = "end.text"
	overlayEndButton   = "end.button"
	overlayEndThanks   = "end.thanks"
	overlayEndReload   = "end.reload"
)

func (r *Room) startIntro() {
	if r.introDone {
		return
	}
	t := r.tune.Timings
	r.setOverlay(overlayIntro, overlayState{On: true}, 0)
	r.setOverlay(overlayIntroTitle, overlayState{On: true, Text: r.texts.Get(texts.IntroTitle)}, 0)
	r.tl.Play(introSequence,
		timeline.Step{After: ms(t.IntroTitleMs), Do: func() {
			r.setOverlay(overlayIntroTitle, overlayState{}, t.PageFadeMs)
		}},
		timeline.Step{After: ms(t.IntroStoryMs), Do: func() {
			r.showIntroPage(texts.IntroStory1, texts.ButtonNext)
		}},
	)
}

// showIntroPage fades a story page in and enables its button once readable.
func (r *Room) showIntroPage(story, button string) {
	t := r.tune.Timings
	r.tl.Play(introSequence,
		timeline.Step{After: ms(t.TextFadeInMs), Do: func() {
			r.setOverlay(overlayIntroStory, overlayState{On: true, Text: r.texts.Get(story)}, t.PageFadeMs)
			r.setOverlay(overlayIntroButton, overlayState{On: true, Text: r.texts.Get(button)}, t.PageFadeMs)
		}},
		timeline.Step{After: ms(t.ButtonEnableMs), Do: func() {
			r.introButton = true
			r.setOverlay(overlayIntroButton, overlayState{On: true, Text: r.texts.Get(button), Enabled: true}, 0)
		}},
	)
}

// advanceSequence handles a click on the intro or ending button. Clicks on a button that is not
// enabled yet are dropped.
func (r *Room) advanceSequence() {
	switch {
	case !r.introDone && r.introButton:
		r.introButton = false
		r.nextIntroPage()
	case r.ended && r.endButton:
		r.endButton = false
		r.showThanks()
	}
}

func (r *Room) nextIntroPage() {
	t := r.tune.Timings
	r.setOverlay(overlayIntroStory, overlayState{}, t.PageFadeMs)
	r.setOverlay(overlayIntroButton, overlayState{}, t.PageFadeMs)
	r.introPage++
	if r.introPage == 1 {
		r.tl.After(introSequence, ms(t.PageFadeMs), func() {
			r.showIntroPage(texts.IntroStory2, texts.ButtonStart)
		})
		return
	}
	r.tl.Play(introSequence,
		timeline.Step{After: ms(t.PageFadeMs), Do: func() {
			r.setOverlay(overlayIntro, overlayState{}, t.OverlayFadeMs)
		}},
		timeline.Step{After: ms(t.OverlayFadeMs), Do: func() {
			r.introDone = true
			r.record(Event{Type: EventIntroDone})
		}},
	)
}

// startEnding runs once the door is opened with the key.
func (r *Room) startEnding() {
	if r.ended {
		return
	}
	r.ended = true
	t := r.tune.Timings
	r.emit(protocol.Cmd{Op: protocol.OpFade, ID: "end", On: protocol.Bool(true), Ms: t.EndFadeMs})
	r.record(Event{Type: EventDoorOpened})
	r.logf("door opened tick=%d elapsed_ms=%d", r.tick, r.now.Sub(r.start).Milliseconds())
	r.tl.Play(endingSequence,
		timeline.Step{After: ms(t.EndFadeMs + t.TextFadeInMs), Do: func() {
			r.setOverlay(overlayEndText, overlayState{On: true, Text: r.texts.Get(texts.EndText)}, t.PageFadeMs)
			r.setOverlay(overlayEndButton, overlayState{On: true, Text: r.texts.Get(texts.ButtonNext)}, t.PageFadeMs)
		}},
		timeline.Step{After: ms(t.ButtonEnableMs), Do: func() {
			r.endButton = true
			r.setOverlay(overlayEndButton, overlayState{On: true, Text: r.texts.Get(texts.ButtonNext), Enabled: true}, 0)
		}},
	)
}

func (r *Room) showThanks() {
	t := r.tune.Timings
	r.setOverlay(overlayEndText, overlayState{}, t.PageFadeMs)
	r.setOverlay(overlayEndButton, overlayState{}, t.PageFadeMs)
	r.endPage = 1
	r.tl.After(endingSequence, ms(t.PageFadeMs+t.TextFadeInMs), func() {
		r.setOverlay(overlayEndThanks, overlayState{On: true, Text: r.texts.Get(texts.EndThanks)}, t.PageFadeMs)
		r.setOverlay(overlayEndReload, overlayState{On: true, Text: r.texts.Get(texts.EndReload)}, t.PageFadeMs)
	})
}

// Ended reports whether the door has been opened.
func (r *Room) Ended() bool { return r.ended }

// IntroDone reports whether gameplay input is accepted.
func (r *Room) IntroDone() bool { return r.introDone }
