package pages

import (
	"fmt"
	"sort"
	"time"
)

// Kind identifies a component variant.
type Kind string

const (
	KindText        Kind = "text"
	KindRectangle   Kind = "rectangle"
	KindImage       Kind = "image"
	KindProgressBar Kind = "progress_bar"
	KindGraph       Kind = "graph"
	KindIcon        Kind = "icon"
	KindLine        Kind = "line"
	KindCircle      Kind = "circle"
	KindArc         Kind = "arc"
	KindArrow       Kind = "arrow"
)

// Component is the closed set of page widgets. The renderer switches
// exhaustively over the concrete types; an unknown kind never decodes.
type Component interface {
	Kind() Kind
	Common() *Base
}

// Base carries the fields shared by every component variant.
type Base struct {
	X       IntValue
	Y       IntValue
	Z       IntValue
	Enabled BoolValue

	// Index is the component's position in the page's component list.
	// It breaks z-order ties and identifies the component in errors.
	Index int
}

// Common implements Component. The accessor cannot share the struct's name:
// a promoted Base method would be shadowed by the embedded Base field.
func (b *Base) Common() *Base { return b }

// ZKey returns the primary z-order sort key: the explicit z when resolved,
// else the insertion index.
func (b *Base) ZKey() int {
	if b.Z.IsSet() && !b.Z.IsTemplate() {
		return b.Z.Int()
	}
	return b.Index
}

// Align positions static text relative to its anchor.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Text draws a static or scrolling string.
type Text struct {
	Base
	Content         string
	Color           ColorSpec
	Align           Align
	Scroll          bool
	ScrollDirection string
	ScrollSpeed     int
	ScrollWidth     int
}

func (*Text) Kind() Kind { return KindText }

// Rectangle draws a filled or outlined box.
type Rectangle struct {
	Base
	Width  IntValue
	Height IntValue
	Color  ColorSpec
	Filled bool
}

func (*Rectangle) Kind() Kind { return KindRectangle }

// Image places a bitmap resolved from a URL, path or inline base64 data.
type Image struct {
	Base
	Source string
}

func (*Image) Kind() Kind { return KindImage }

// ProgressBar draws a proportional fill normalized into [Min, Max].
type ProgressBar struct {
	Base
	Width      IntValue
	Height     IntValue
	Value      ValueSource
	Min        float64
	Max        float64
	Vertical   bool
	Color      ColorSpec
	Background ColorSpec
	Border     ColorSpec
	Thresholds []ColorThreshold
	Transition Transition
}

func (*ProgressBar) Kind() Kind { return KindProgressBar }

// GraphMode selects how aggregated bins are drawn.
type GraphMode string

const (
	GraphLine GraphMode = "line"
	GraphBar  GraphMode = "bar"
)

// Aggregate selects the per-bin sample reduction.
type Aggregate string

const (
	AggregateAvg  Aggregate = "avg"
	AggregateMin  Aggregate = "min"
	AggregateMax  Aggregate = "max"
	AggregateLast Aggregate = "last"
)

// Graph plots an entity's history over a time window.
type Graph struct {
	Base
	Width      IntValue
	Height     IntValue
	Entity     string
	Window     time.Duration
	Points     int
	MinValue   *float64
	MaxValue   *float64
	Mode       GraphMode
	Aggregate  Aggregate
	Fill       bool
	Color      ColorSpec
	Thresholds []ColorThreshold
	Transition Transition
}

func (*Graph) Kind() Kind { return KindGraph }

// Icon rasterizes a named vector icon at a fixed square size.
type Icon struct {
	Base
	Name       string
	Size       int
	Color      ColorSpec
	Value      ValueSource
	Thresholds []ColorThreshold
	Transition Transition
}

func (*Icon) Kind() Kind { return KindIcon }

// Line draws a straight segment of the given thickness.
type Line struct {
	Base
	X2         IntValue
	Y2         IntValue
	Thickness  int
	Color      ColorSpec
	Value      ValueSource
	Thresholds []ColorThreshold
	Transition Transition
}

func (*Line) Kind() Kind { return KindLine }

// Circle draws a filled or outlined circle around its center anchor.
type Circle struct {
	Base
	Radius     IntValue
	Filled     bool
	Color      ColorSpec
	Value      ValueSource
	Thresholds []ColorThreshold
	Transition Transition
}

func (*Circle) Kind() Kind { return KindCircle }

// Arc draws a circular arc or pie slice. Angles are degrees with 0 at
// 12 o'clock, increasing clockwise.
type Arc struct {
	Base
	Radius     IntValue
	StartAngle float64
	EndAngle   float64
	Thickness  int
	Filled     bool
	Color      ColorSpec
	Value      ValueSource
	Thresholds []ColorThreshold
	Transition Transition
}

func (*Arc) Kind() Kind { return KindArc }

// Arrow draws a shaft from its center anchor plus a two-stroke head.
// Angle is degrees with 0 pointing up, increasing clockwise.
type Arrow struct {
	Base
	Length     IntValue
	Angle      float64
	Thickness  int
	HeadSize   int
	Color      ColorSpec
	Value      ValueSource
	Thresholds []ColorThreshold
	Transition Transition
}

func (*Arrow) Kind() Kind { return KindArrow }

// DecodeComponent validates and decodes one component document. index is the
// component's position in the page's component list.
func DecodeComponent(doc map[string]any, index int) (Component, error) {
	kindStr, _ := doc["type"].(string)
	if kindStr == "" {
		return nil, fmt.Errorf("component %d: type is required", index)
	}

	base, err := decodeBase(doc, index)
	if err != nil {
		return nil, fmt.Errorf("component %d (%s): %w", index, kindStr, err)
	}

	var c Component
	switch Kind(kindStr) {
	case KindText:
		c, err = decodeText(doc, base)
	case KindRectangle:
		c, err = decodeRectangle(doc, base)
	case KindImage:
		c, err = decodeImage(doc, base)
	case KindProgressBar:
		c, err = decodeProgressBar(doc, base)
	case KindGraph:
		c, err = decodeGraph(doc, base)
	case KindIcon:
		c, err = decodeIcon(doc, base)
	case KindLine:
		c, err = decodeLine(doc, base)
	case KindCircle:
		c, err = decodeCircle(doc, base)
	case KindArc:
		c, err = decodeArc(doc, base)
	case KindArrow:
		c, err = decodeArrow(doc, base)
	default:
		return nil, fmt.Errorf("component %d: unknown type %q", index, kindStr)
	}
	if err != nil {
		return nil, fmt.Errorf("component %d (%s): %w", index, kindStr, err)
	}
	return c, nil
}

func decodeBase(doc map[string]any, index int) (Base, error) {
	x, err := intValueOf(doc["x"])
	if err != nil {
		return Base{}, fmt.Errorf("x: %w", err)
	}
	y, err := intValueOf(doc["y"])
	if err != nil {
		return Base{}, fmt.Errorf("y: %w", err)
	}
	z, err := intValueOf(doc["z"])
	if err != nil {
		return Base{}, fmt.Errorf("z: %w", err)
	}
	enabled, err := boolValueOf(doc["enabled"])
	if err != nil {
		return Base{}, fmt.Errorf("enabled: %w", err)
	}
	return Base{X: x, Y: y, Z: z, Enabled: enabled, Index: index}, nil
}

func decodeText(doc map[string]any, base Base) (Component, error) {
	content, ok := doc["text"].(string)
	if !ok {
		return nil, fmt.Errorf("text is required")
	}
	speed, err := intOf(doc["scroll_speed"], 100)
	if err != nil {
		return nil, fmt.Errorf("scroll_speed: %w", err)
	}
	width, err := intOf(doc["scroll_width"], 0)
	if err != nil {
		return nil, fmt.Errorf("scroll_width: %w", err)
	}
	scroll, _ := doc["scroll"].(bool)
	return &Text{
		Base:            base,
		Content:         content,
		Color:           ColorSpec{Raw: doc["color"]},
		Align:           Align(stringOf(doc["align"], string(AlignLeft))),
		Scroll:          scroll,
		ScrollDirection: stringOf(doc["scroll_direction"], "left"),
		ScrollSpeed:     speed,
		ScrollWidth:     width,
	}, nil
}

func decodeRectangle(doc map[string]any, base Base) (Component, error) {
	w, err := intValueOf(doc["width"])
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	h, err := intValueOf(doc["height"])
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	filled, _ := doc["filled"].(bool)
	return &Rectangle{
		Base:   base,
		Width:  w,
		Height: h,
		Color:  ColorSpec{Raw: doc["color"]},
		Filled: filled,
	}, nil
}

func decodeImage(doc map[string]any, base Base) (Component, error) {
	source, _ := doc["source"].(string)
	return &Image{Base: base, Source: source}, nil
}

func decodeProgressBar(doc map[string]any, base Base) (Component, error) {
	w, err := intValueOf(doc["width"])
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	h, err := intValueOf(doc["height"])
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	value, err := valueSourceOf(doc["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	min := 0.0
	if doc["min"] != nil {
		if min, err = floatOf(doc["min"]); err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
	}
	max := 100.0
	if doc["max"] != nil {
		if max, err = floatOf(doc["max"]); err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	vertical := stringOf(doc["orientation"], "horizontal") == "vertical"
	return &ProgressBar{
		Base:       base,
		Width:      w,
		Height:     h,
		Value:      value,
		Min:        min,
		Max:        max,
		Vertical:   vertical,
		Color:      ColorSpec{Raw: doc["color"]},
		Background: ColorSpec{Raw: doc["background"]},
		Border:     ColorSpec{Raw: doc["border"]},
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

func decodeGraph(doc map[string]any, base Base) (Component, error) {
	w, err := intValueOf(doc["width"])
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	h, err := intValueOf(doc["height"])
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	entity, _ := doc["entity"].(string)
	if entity == "" {
		return nil, fmt.Errorf("entity is required")
	}
	windowSec, err := intOf(doc["duration"], 3600)
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	if windowSec < 1 {
		return nil, fmt.Errorf("duration must be >= 1, got %d", windowSec)
	}
	points, err := intOf(doc["points"], 0)
	if err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}
	var minV, maxV *float64
	if doc["min_value"] != nil {
		f, err := floatOf(doc["min_value"])
		if err != nil {
			return nil, fmt.Errorf("min_value: %w", err)
		}
		minV = &f
	}
	if doc["max_value"] != nil {
		f, err := floatOf(doc["max_value"])
		if err != nil {
			return nil, fmt.Errorf("max_value: %w", err)
		}
		maxV = &f
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	fill, _ := doc["fill"].(bool)
	return &Graph{
		Base:       base,
		Width:      w,
		Height:     h,
		Entity:     entity,
		Window:     time.Duration(windowSec) * time.Second,
		Points:     points,
		MinValue:   minV,
		MaxValue:   maxV,
		Mode:       GraphMode(stringOf(doc["mode"], string(GraphLine))),
		Aggregate:  Aggregate(stringOf(doc["aggregate"], string(AggregateAvg))),
		Fill:       fill,
		Color:      ColorSpec{Raw: doc["color"]},
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

func decodeIcon(doc map[string]any, base Base) (Component, error) {
	name, _ := doc["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	size, err := intOf(doc["size"], 8)
	if err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	value, err := valueSourceOf(doc["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	return &Icon{
		Base:       base,
		Name:       name,
		Size:       size,
		Color:      ColorSpec{Raw: doc["color"]},
		Value:      value,
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

func decodeLine(doc map[string]any, base Base) (Component, error) {
	x2, err := intValueOf(doc["x2"])
	if err != nil {
		return nil, fmt.Errorf("x2: %w", err)
	}
	y2, err := intValueOf(doc["y2"])
	if err != nil {
		return nil, fmt.Errorf("y2: %w", err)
	}
	thickness, err := intOf(doc["thickness"], 1)
	if err != nil {
		return nil, fmt.Errorf("thickness: %w", err)
	}
	value, err := valueSourceOf(doc["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	return &Line{
		Base:       base,
		X2:         x2,
		Y2:         y2,
		Thickness:  thickness,
		Color:      ColorSpec{Raw: doc["color"]},
		Value:      value,
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

func decodeCircle(doc map[string]any, base Base) (Component, error) {
	radius, err := intValueOf(doc["radius"])
	if err != nil {
		return nil, fmt.Errorf("radius: %w", err)
	}
	if !radius.IsSet() {
		return nil, fmt.Errorf("radius is required")
	}
	value, err := valueSourceOf(doc["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	filled, _ := doc["filled"].(bool)
	return &Circle{
		Base:       base,
		Radius:     radius,
		Filled:     filled,
		Color:      ColorSpec{Raw: doc["color"]},
		Value:      value,
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

func decodeArc(doc map[string]any, base Base) (Component, error) {
	radius, err := intValueOf(doc["radius"])
	if err != nil {
		return nil, fmt.Errorf("radius: %w", err)
	}
	if !radius.IsSet() {
		return nil, fmt.Errorf("radius is required")
	}
	start := 0.0
	if doc["start_angle"] != nil {
		if start, err = floatOf(doc["start_angle"]); err != nil {
			return nil, fmt.Errorf("start_angle: %w", err)
		}
	}
	end := 360.0
	if doc["end_angle"] != nil {
		if end, err = floatOf(doc["end_angle"]); err != nil {
			return nil, fmt.Errorf("end_angle: %w", err)
		}
	}
	thickness, err := intOf(doc["thickness"], 1)
	if err != nil {
		return nil, fmt.Errorf("thickness: %w", err)
	}
	value, err := valueSourceOf(doc["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	filled, _ := doc["filled"].(bool)
	return &Arc{
		Base:       base,
		Radius:     radius,
		StartAngle: start,
		EndAngle:   end,
		Thickness:  thickness,
		Filled:     filled,
		Color:      ColorSpec{Raw: doc["color"]},
		Value:      value,
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

func decodeArrow(doc map[string]any, base Base) (Component, error) {
	length, err := intValueOf(doc["length"])
	if err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}
	if !length.IsSet() {
		return nil, fmt.Errorf("length is required")
	}
	angle := 0.0
	if doc["angle"] != nil {
		if angle, err = floatOf(doc["angle"]); err != nil {
			return nil, fmt.Errorf("angle: %w", err)
		}
	}
	thickness, err := intOf(doc["thickness"], 1)
	if err != nil {
		return nil, fmt.Errorf("thickness: %w", err)
	}
	headSize, err := intOf(doc["head_size"], 3)
	if err != nil {
		return nil, fmt.Errorf("head_size: %w", err)
	}
	value, err := valueSourceOf(doc["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	thresholds, err := thresholdsOf(doc["color_thresholds"])
	if err != nil {
		return nil, err
	}
	return &Arrow{
		Base:       base,
		Length:     length,
		Angle:      angle,
		Thickness:  thickness,
		HeadSize:   headSize,
		Color:      ColorSpec{Raw: doc["color"]},
		Value:      value,
		Thresholds: thresholds,
		Transition: Transition(stringOf(doc["transition"], string(TransitionHard))),
	}, nil
}

// RenderOrder returns the components sorted for drawing: ascending by
// (explicit z if resolved, else insertion index), ties broken by insertion
// index. The sort is stable so equal keys keep list order.
func RenderOrder(components []Component) []Component {
	out := make([]Component, len(components))
	copy(out, components)
	sort.SliceStable(out, func(i, j int) bool {
		zi, zj := out[i].Common().ZKey(), out[j].Common().ZKey()
		if zi != zj {
			return zi < zj
		}
		return out[i].Common().Index < out[j].Common().Index
	})
	return out
}
