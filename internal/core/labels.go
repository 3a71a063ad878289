package core

import "fmt"

// Label identifies one of the classes the leaf classifier can output.
type Label string

const (
	BacterialSpot       Label = "Tomato___Bacterial_spot"
	EarlyBlight         Label = "Tomato___Early_blight"
	Healthy             Label = "Tomato___Healthy"
	LateBlight          Label = "Tomato___Late_blight"
	LeafMold            Label = "Tomato___Leaf_Mold"
	SeptoriaLeafSpot    Label = "Tomato___Septoria_leaf_spot"
	SpiderMites         Label = "Tomato___Spider_mites"
	TargetSpot          Label = "Tomato___Target_Spot"
	YellowLeafCurlVirus Label = "Tomato___Tomato_Yellow_Leaf_Curl_Virus"
	TomatoMosaicVirus   Label = "Tomato___Tomato_mosaic_virus"
)

// ClassNames is ordered by model output index.
var ClassNames = []Label{
	BacterialSpot,
	EarlyBlight,
	Healthy,
	LateBlight,
	LeafMold,
	SeptoriaLeafSpot,
	SpiderMites,
	TargetSpot,
	YellowLeafCurlVirus,
	TomatoMosaicVirus,
}

func LabelForIndex(idx int) (Label, error) {
	if idx < 0 || idx >= len(ClassNames) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", idx, len(ClassNames))
	}
	return ClassNames[idx], nil
}

func ParseLabel(s string) (Label, bool) {
	for _, label := range ClassNames {
		if string(label) == s {
			return label, true
		}
	}
	return "", false
}
