// Package audio plays narration clips and the ambient loop through a single
// oto/v3 output, and decodes fetched clips into the device's PCM format.
package audio
