package narration

import "context"

// Utterance is everything a speaker needs to voice one step.
type Utterance struct {
	Step  int
	Text  string
	Tag   string  // BCP 47 tag of the narration language
	Voice string  // voice ID, empty for the synthesizer default
	Rate  float64 // 1.0 is the synthesizer's normal pace
}

// Handle is exclusive ownership of one in-flight playback.
type Handle interface {
	Pause() error
	Resume() error
	// Cancel stops playback and releases the output. It is idempotent. A
	// completion already in flight may still be delivered; sessions drop it.
	Cancel() error
}

// Speaker acquires playback for an utterance: a platform synthesizer, or a
// remote clip source feeding an audio device.
//
// done reports natural completion (nil) or a mid-playback failure exactly
// once. Implementations must call it from their own goroutine, never from
// inside Speak or Cancel.
type Speaker interface {
	Speak(ctx context.Context, u Utterance, done func(error)) (Handle, error)
}

// Prefetcher is implemented by speakers that can prepare upcoming
// utterances ahead of time, such as fetching remote clips.
type Prefetcher interface {
	Prefetch(ctx context.Context, next []Utterance) error
}

// Ambient is notified when narration takes and releases the output.
type Ambient interface {
	OnNarrationStart()
	OnNarrationEnd()
}
