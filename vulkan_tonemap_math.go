// vulkan_tonemap_math.go - CPU reference implementation of the
// per-pixel HDR tone-mapping pipeline described in §4.F. This is the
// pure function the compute shader in vulkan_shaders.go implements;
// keeping it in Go lets the numeric contracts (monotonicity,
// idempotence, PQ/sRGB roundtrip) be unit tested without a GPU.

package main

import "math"

// Tone curve selectors, matching the push-constant `mode` field.
const (
	modeReinhard uint32 = iota
	modeACESNarkowicz
	modeACESHill
	modeACESDay
	modeACESFullRRT
	modeHable
	modeReinhardExtended
	modeUchimura
)

// PQ (SMPTE ST.2084) inverse transfer function constants.
const (
	pqM1 = 0.1593017578125
	pqM2 = 78.84375
	pqC1 = 0.8359375
	pqC2 = 18.8515625
	pqC3 = 18.6875
)

// normalizeFactors maps tone-curve mode to the cd/m^2 -> scene-linear
// divisor from §4.F step 4's table.
var normalizeFactors = map[uint32]float64{
	modeReinhard:         100,
	modeACESNarkowicz:    80,
	modeACESHill:         80,
	modeACESDay:          80,
	modeACESFullRRT:      80,
	modeHable:            200,
	modeReinhardExtended: 120,
	modeUchimura:         400,
}

// powClampedBase computes base^exp, clamping a negative base to 0
// first, per §4.F's guard against NaN from pow of a negative base.
func powClampedBase(base, exp float64) float64 {
	if base < 0 {
		base = 0
	}
	return math.Pow(base, exp)
}

// pqDecode converts one PQ-encoded [0,1] sample to cd/m^2, in [0, 10000].
func pqDecode(x float64) float64 {
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	p := powClampedBase(x, 1/pqM2)
	d := math.Max(p-pqC1, 0)
	d2 := pqC2 - pqC3*p
	if d2 < 1e-7 {
		d2 = 1e-7
	}
	linear := powClampedBase(d/d2, 1/pqM1)
	return linear * 10000
}

// pqEncode is the forward PQ transfer function, the inverse of
// pqDecode, used only by the roundtrip test.
func pqEncode(linear float64) float64 {
	if linear < 0 {
		linear = 0
	}
	y := linear / 10000
	p := powClampedBase(y, pqM1)
	return powClampedBase((pqC1+pqC2*p)/(1+pqC3*p), pqM2)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

func step(edge, x float64) float64 {
	if x < edge {
		return 0
	}
	return 1
}

// luminance709 is the Rec.709 luma weighting used by the ACES-Full-RRT
// glow and desaturation stages.
func luminance709(r, g, b float64) float64 {
	return 0.2126729*r + 0.7151522*g + 0.0721750*b
}

// saturation is (max-min)/max(max,0.01), guarded against division by
// zero near black.
func saturation(r, g, b float64) float64 {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	denom := math.Max(max, 0.01)
	return (max - min) / denom
}

// srgbEncode applies the sRGB OETF to one linear channel value.
func srgbEncode(x float64) float64 {
	if x <= 0.0031308 {
		return 12.92 * x
	}
	return 1.055*powClampedBase(x, 1/2.4) - 0.055
}

// srgbDecode is the inverse of srgbEncode, used only by the roundtrip
// test.
func srgbDecode(x float64) float64 {
	if x <= 0.04045 {
		return x / 12.92
	}
	return powClampedBase((x+0.055)/1.055, 2.4)
}

// reinhardCurve is the basic x/(x+1) operator.
func reinhardCurve(x float64) float64 { return x / (x + 1) }

// reinhardExtendedCurve is the white=4 extended Reinhard operator.
func reinhardExtendedCurve(x float64) float64 {
	const white = 4.0
	return x * (1 + x/(white*white)) / (1 + x)
}

// Uncharted-2 filmic curve constants (Hable).
const (
	hableA = 0.15
	hableB = 0.50
	hableC = 0.10
	hableD = 0.20
	hableE = 0.02
	hableF = 0.30
	hableW = 11.2
)

func hableTonemap(x float64) float64 {
	return ((x*(hableA*x+hableC*hableB) + hableD*hableE) / (x*(hableA*x+hableB) + hableD*hableF)) - hableE/hableF
}

// hableCurve evaluates the Hable operator at 2x, normalized by its
// value at W=11.2, per §4.F.
func hableCurve(x float64) float64 {
	return hableTonemap(2*x) / hableTonemap(hableW)
}

// Uchimura (Gran Turismo) tonemap constants.
const (
	uchimuraP = 1.0
	uchimuraA = 1.0
	uchimuraM = 0.22
	uchimuraL = 0.4
	uchimuraC = 1.33
	uchimuraB = 0.0
)

func uchimuraCurve(x float64) float64 {
	P, a, m, l, c, b := uchimuraP, uchimuraA, uchimuraM, uchimuraL, uchimuraC, uchimuraB

	l0 := (P - m) * l / a
	S0 := m + l0
	S1 := m + a*l0
	C2 := a * P / (P - S1)
	CP := -C2 / P

	w0 := 1 - smoothstep(0, m, x)
	w2 := step(m+l0, x)
	w1 := 1 - w0 - w2

	toe := m * powClampedBase(x/m, c) + b
	shoulder := P - (P-S1)*math.Exp(CP*(x-S0))
	linear := m + a*(x-m)

	return toe*w0 + linear*w1 + shoulder*w2
}

// acesNarkowiczRational is the Narkowicz rational approximation.
func acesNarkowiczRational(x float64) float64 {
	return clamp01((x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14))
}

func acesHillRational(x float64) float64 {
	return (x*(x+0.0245786) - 0.000090537) / (x*(0.983729*x+0.4329510) + 0.238081)
}

// acesFullRRT reference constants, from the ACES RRT glow module, red
// modifier, and tone-scale stages.
const (
	acesGlowGain  = 0.05
	acesGlowMid   = 0.08
	acesRedHue    = 15.0  // degrees
	acesRedWidth  = 60.0  // degrees, each side
	acesRedPivot  = 0.03
	acesRedScale  = 0.82
	acesScaleA    = 278.5085
	acesScaleB    = 10.7772
	acesScaleC    = 293.6045
	acesScaleD    = 88.7122
	acesScaleE    = 80.6889
	acesDesatLo   = 0.18
	acesDesatHi   = 2.0
)

func acesGlowFwd(yc float64) float64 {
	switch {
	case yc <= 2.0/3.0*acesGlowMid:
		return acesGlowGain
	case yc >= 2*acesGlowMid:
		return 0
	default:
		return acesGlowGain * (acesGlowMid/yc - 0.5)
	}
}

// rgbHueDegrees estimates a hue angle in degrees via atan2 over the
// two chroma axes implied by a Rec.709-like RGB cube, centered so 0 is
// red.
func rgbHueDegrees(r, g, b float64) float64 {
	// A cheap but monotone hue estimate sufficient for the red-region
	// weighting: project onto the two axes that separate red from the
	// green/blue plane.
	x := r - 0.5*(g+b)
	y := (g - b) * 0.8660254037844386 // sqrt(3)/2
	if x == 0 && y == 0 {
		return 0
	}
	return math.Atan2(y, x) * 180 / math.Pi
}

func acesRedModFwd(r, g, b, sat float64) float64 {
	hue := rgbHueDegrees(r, g, b)
	centered := hue - acesRedHue
	for centered > 180 {
		centered -= 360
	}
	for centered < -180 {
		centered += 360
	}
	hueWeight := clamp01(1 - math.Abs(centered)/acesRedWidth)
	hueWeight = hueWeight * hueWeight
	return r + hueWeight*sat*(acesRedPivot-r)*(1-acesRedScale)
}

func acesToneScale(x float64) float64 {
	return (x * (acesScaleA*x + acesScaleB)) / (x*(acesScaleC*x+acesScaleD) + acesScaleE)
}

// acesFullRRT implements §4.F's ACES-Full-RRT operator: AP1 input
// clamped into AP0 and back, glow module, hue-shaped red modifier,
// per-channel tone-scale, and a global desaturation toward luminance
// as brightness rises from 0.18 to 2.0.
func acesFullRRT(r, g, b float64) (float64, float64, float64) {
	r, g, b = clamp(r, 0, math.Inf(1)), clamp(g, 0, math.Inf(1)), clamp(b, 0, math.Inf(1))
	ar, ag, ab := ap1ToAP0.apply(r, g, b)
	r, g, b = ap0ToAP1.apply(ar, ag, ab)

	sat := saturation(r, g, b)
	yc := luminance709(r, g, b)
	glow := acesGlowFwd(yc)
	r, g, b = r*(1+glow), g*(1+glow), b*(1+glow)

	r = acesRedModFwd(r, g, b, sat)

	r = acesToneScale(r)
	g = acesToneScale(g)
	b = acesToneScale(b)

	lum := luminance709(r, g, b)
	desat := smoothstep(acesDesatLo, acesDesatHi, lum)
	r = r + (lum-r)*desat
	g = g + (lum-g)*desat
	b = b + (lum-b)*desat

	return r, g, b
}

// applyToneCurve dispatches to the selected operator, converting to
// and from AP1/Rec.709 as each operator requires, per §4.F step 6.
func applyToneCurve(mode uint32, r, g, b float64) (float64, float64, float64) {
	switch mode {
	case modeReinhard:
		return reinhardCurve(r), reinhardCurve(g), reinhardCurve(b)
	case modeReinhardExtended:
		return reinhardExtendedCurve(r), reinhardExtendedCurve(g), reinhardExtendedCurve(b)
	case modeHable:
		return hableCurve(r), hableCurve(g), hableCurve(b)
	case modeUchimura:
		return uchimuraCurve(r), uchimuraCurve(g), uchimuraCurve(b)
	case modeACESNarkowicz:
		ar, ag, ab := rec709ToAP1.apply(r, g, b)
		ar, ag, ab = acesNarkowiczRational(ar), acesNarkowiczRational(ag), acesNarkowiczRational(ab)
		return ap1ToRec709.apply(ar, ag, ab)
	case modeACESHill:
		ar, ag, ab := rec709ToAP1.apply(r, g, b)
		ar, ag, ab = acesHillRational(ar), acesHillRational(ag), acesHillRational(ab)
		return ap1ToRec709.apply(ar, ag, ab)
	case modeACESDay:
		const prescale = 0.6
		ar, ag, ab := rec709ToAP1.apply(r, g, b)
		ar, ag, ab = ar*prescale, ag*prescale, ab*prescale
		ar, ag, ab = acesNarkowiczRational(ar), acesNarkowiczRational(ag), acesNarkowiczRational(ab)
		return ap1ToRec709.apply(ar, ag, ab)
	case modeACESFullRRT:
		ar, ag, ab := rec709ToAP1.apply(r, g, b)
		ar, ag, ab = acesFullRRT(ar, ag, ab)
		return ap1ToRec709.apply(ar, ag, ab)
	default:
		return reinhardCurve(r), reinhardCurve(g), reinhardCurve(b)
	}
}

// tonemapPixel runs the complete per-pixel pipeline from an rgba16 PQ
// sample in [0,1] to an sRGB-encoded [0,1] output, per §4.F steps 1-8.
func tonemapPixel(r, g, b, exposure float64, mode uint32) (float64, float64, float64) {
	r, g, b = clamp01(r), clamp01(g), clamp01(b)
	r, g, b = pqDecode(r), pqDecode(g), pqDecode(b)
	r, g, b = rec2020ToRec709.apply(r, g, b)

	factor := normalizeFactors[mode]
	if factor == 0 {
		factor = 100
	}
	r, g, b = r/factor, g/factor, b/factor
	r, g, b = r*exposure, g*exposure, b*exposure

	r, g, b = applyToneCurve(mode, r, g, b)

	r, g, b = clamp01(r), clamp01(g), clamp01(b)
	return srgbEncode(r), srgbEncode(g), srgbEncode(b)
}
