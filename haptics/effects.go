package haptics

// Effect is an entry of the DRV2605 ROM waveform library.
type Effect uint8

// DRV2605 library effects. The trailing number is the playback strength in
// percent.
const (
	StrongClick100 Effect = iota + 1
	StrongClick60
	StrongClick30
	SharpClick100
	SharpClick60
	SharpClick30
	SoftBump100
	SoftBump60
	SoftBump30
	DoubleClick100
	DoubleClick60
	TripleClick100
	SoftFuzz60
	StrongBuzz100
	Alert750ms
	Alert1000ms
	StrongClick1_100
	StrongClick80
	StrongClick3_60
	StrongClick4_30
	MediumClick100
	MediumClick80
	MediumClick60
	SharpTick100
	SharpTick80
	SharpTick60
	ShortDoubleClickStrong100
	ShortDoubleClickStrong80
	ShortDoubleClickStrong60
	ShortDoubleClickStrong30
	ShortDoubleClickMedium100
	ShortDoubleClickMedium80
	ShortDoubleClickMedium60
	ShortDoubleSharpTick100
	ShortDoubleSharpTick80
	ShortDoubleSharpTick60
	LongDoubleSharpClickStrong100
	LongDoubleSharpClickStrong80
	LongDoubleSharpClickStrong60
	LongDoubleSharpClickStrong30
	LongDoubleSharpClickMedium100
	LongDoubleSharpClickMedium80
	LongDoubleSharpClickMedium60
	LongDoubleSharpTick100
	LongDoubleSharpTick80
	LongDoubleSharpTick60
	Buzz100
	Buzz80
	Buzz60
	Buzz40
	Buzz20
	PulsingStrong100
	PulsingStrong60
	PulsingMedium100
	PulsingMedium60
	PulsingSharp100
	PulsingSharp60
	TransitionClick100
	TransitionClick80
	TransitionClick60
	TransitionClick40
	TransitionClick20
	TransitionClick10
	TransitionHum100
	TransitionHum80
	TransitionHum60
	TransitionHum40
	TransitionHum20
	TransitionHum10
	RampDownLongSmooth1_100
	RampDownLongSmooth2_100
	RampDownMediumSmooth1_100
	RampDownMediumSmooth2_100
	RampDownShortSmooth1_100
	RampDownShortSmooth2_100
	RampDownLongSharp1_100
	RampDownLongSharp2_100
	RampDownMediumSharp1_100
	RampDownMediumSharp2_100
	RampDownShortSharp1_100
	RampDownShortSharp2_100
	RampUpLongSmooth1_100
	RampUpLongSmooth2_100
	RampUpMediumSmooth1_100
	RampUpMediumSmooth2_100
	RampUpShortSmooth1_100
	RampUpShortSmooth2_100
	RampUpLongSharp1_100
	RampUpLongSharp2_100
	RampUpMediumSharp1_100
	RampUpMediumSharp2_100
	RampUpShortSharp1_100
	RampUpShortSharp2_100
	RampDownLongSmooth1_50
	RampDownLongSmooth2_50
	RampDownMediumSmooth1_50
	RampDownMediumSmooth2_50
	RampDownShortSmooth1_50
	RampDownShortSmooth2_50
	RampDownLongSharp1_50
	RampDownLongSharp2_50
	RampDownMediumSharp1_50
	RampDownMediumSharp2_50
	RampDownShortSharp1_50
	RampDownShortSharp2_50
	RampUpLongSmooth1_50
	RampUpLongSmooth2_50
	RampUpMediumSmooth1_50
	RampUpMediumSmooth2_50
	RampUpShortSmooth1_50
	RampUpShortSmooth2_50
	RampUpLongSharp1_50
	RampUpLongSharp2_50
	RampUpMediumSharp1_50
	RampUpMediumSharp2_50
	RampUpShortSharp1_50
	RampUpShortSharp2_50
	LongBuzz100
	SmoothHum50
	SmoothHum40
	SmoothHum30
	SmoothHum20
	SmoothHum10

	maxEffect = SmoothHum10
)

var effectNames = [...]string{
	"strongClick100",
	"strongClick60",
	"strongClick30",
	"sharpClick100",
	"sharpClick60",
	"sharpClick30",
	"softBump100",
	"softBump60",
	"softBump30",
	"doubleClick100",
	"doubleClick60",
	"tripleClick100",
	"softFuzz60",
	"strongBuzz100",
	"alert750ms",
	"alert1000ms",
	"strongClick1_100",
	"strongClick80",
	"strongClick3_60",
	"strongClick4_30",
	"mediumClick100",
	"mediumClick80",
	"mediumClick60",
	"sharpTick100",
	"sharpTick80",
	"sharpTick60",
	"shortDoubleClickStrong100",
	"shortDoubleClickStrong80",
	"shortDoubleClickStrong60",
	"shortDoubleClickStrong30",
	"shortDoubleClickMedium100",
	"shortDoubleClickMedium80",
	"shortDoubleClickMedium60",
	"shortDoubleSharpTick100",
	"shortDoubleSharpTick80",
	"shortDoubleSharpTick60",
	"longDoubleSharpClickStrong100",
	"longDoubleSharpClickStrong80",
	"longDoubleSharpClickStrong60",
	"longDoubleSharpClickStrong30",
	"longDoubleSharpClickMedium100",
	"longDoubleSharpClickMedium80",
	"longDoubleSharpClickMedium60",
	"longDoubleSharpTick100",
	"longDoubleSharpTick80",
	"longDoubleSharpTick60",
	"buzz100",
	"buzz80",
	"buzz60",
	"buzz40",
	"buzz20",
	"pulsingStrong100",
	"pulsingStrong60",
	"pulsingMedium100",
	"pulsingMedium60",
	"pulsingSharp100",
	"pulsingSharp60",
	"transitionClick100",
	"transitionClick80",
	"transitionClick60",
	"transitionClick40",
	"transitionClick20",
	"transitionClick10",
	"transitionHum100",
	"transitionHum80",
	"transitionHum60",
	"transitionHum40",
	"transitionHum20",
	"transitionHum10",
	"rampDownLongSmooth1_100",
	"rampDownLongSmooth2_100",
	"rampDownMediumSmooth1_100",
	"rampDownMediumSmooth2_100",
	"rampDownShortSmooth1_100",
	"rampDownShortSmooth2_100",
	"rampDownLongSharp1_100",
	"rampDownLongSharp2_100",
	"rampDownMediumSharp1_100",
	"rampDownMediumSharp2_100",
	"rampDownShortSharp1_100",
	"rampDownShortSharp2_100",
	"rampUpLongSmooth1_100",
	"rampUpLongSmooth2_100",
	"rampUpMediumSmooth1_100",
	"rampUpMediumSmooth2_100",
	"rampUpShortSmooth1_100",
	"rampUpShortSmooth2_100",
	"rampUpLongSharp1_100",
	"rampUpLongSharp2_100",
	"rampUpMediumSharp1_100",
	"rampUpMediumSharp2_100",
	"rampUpShortSharp1_100",
	"rampUpShortSharp2_100",
	"rampDownLongSmooth1_50",
	"rampDownLongSmooth2_50",
	"rampDownMediumSmooth1_50",
	"rampDownMediumSmooth2_50",
	"rampDownShortSmooth1_50",
	"rampDownShortSmooth2_50",
	"rampDownLongSharp1_50",
	"rampDownLongSharp2_50",
	"rampDownMediumSharp1_50",
	"rampDownMediumSharp2_50",
	"rampDownShortSharp1_50",
	"rampDownShortSharp2_50",
	"rampUpLongSmooth1_50",
	"rampUpLongSmooth2_50",
	"rampUpMediumSmooth1_50",
	"rampUpMediumSmooth2_50",
	"rampUpShortSmooth1_50",
	"rampUpShortSmooth2_50",
	"rampUpLongSharp1_50",
	"rampUpLongSharp2_50",
	"rampUpMediumSharp1_50",
	"rampUpMediumSharp2_50",
	"rampUpShortSharp1_50",
	"rampUpShortSharp2_50",
	"longBuzz100",
	"smoothHum50",
	"smoothHum40",
	"smoothHum30",
	"smoothHum20",
	"smoothHum10",
}
