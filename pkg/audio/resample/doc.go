// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts raw sample bytes between formats, rates and speeds
// Package resample provides audio format and sample rate conversion.
//
// A Resampler is configured in two steps: SetOutFormat and SetSpeed record
// the target, Prepare applies it. Convert then turns InFormat bytes into
// OutFormat bytes.
//
// Example:
//
//	r := resample.NewLinear(decoded)
//	r.SetOutFormat(device)
//	if err := r.Prepare(); err != nil {
//	    return err
//	}
//	out, err := r.Convert(chunk)
package resample
