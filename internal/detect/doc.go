// Package detect implements logo detection via grayscale template matching.
// Matching is a pure function of the frame and the preloaded reference;
// screenshot annotation is a presentation layer on top of the match result.
package detect
