// Package effects provides the signal stages used by the two style
// presets.
//
// Raw-dynamics stages: NoiseInjector, Saturator, Expander,
// TransientEnhancer, RoomReflection.
//
// Lo-fi stages: SwingShifter, LofiCrusher.
//
// Normalize is shared by both presets as the final stage.
//
// All stages operate on mono float64 buffers and process in place.
// Stages with per-chunk semantics (SwingShifter) take the chunk's
// absolute start offset so they can align against whole-track state.
package effects
