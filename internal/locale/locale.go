// Package locale carries the bilingual (Chinese/English) labels used for
// export headers, default field titles, and the option lists offered for
// typed annotation fields.
package locale

import "golang.org/x/text/language"

type Labels struct {
	Tag language.Tag

	LensNumber string
	Time       string
	Screenshot string

	ShotType       string
	CameraMovement string
	Custom         string

	ShotTypeOptions       []string
	CameraMovementOptions []string
}

var chinese = Labels{
	Tag:            language.Chinese,
	LensNumber:     "镜号",
	Time:           "时间",
	Screenshot:     "视频截图",
	ShotType:       "景别",
	CameraMovement: "运镜",
	Custom:         "自定义",
	ShotTypeOptions: []string{
		"全景", "远景", "中景", "近景", "特写",
	},
	CameraMovementOptions: []string{
		"固定", "横摇", "俯仰", "横移", "升降", "跟随", "环绕", "推拉",
	},
}

var english = Labels{
	Tag:            language.English,
	LensNumber:     "Lens No.",
	Time:           "Time",
	Screenshot:     "Screenshot",
	ShotType:       "Shot Type",
	CameraMovement: "Camera Movement",
	Custom:         "Custom",
	ShotTypeOptions: []string{
		"Extreme Shot", "Long Shot", "Medium Shot", "Close Shot", "Detail Shot",
	},
	CameraMovementOptions: []string{
		"Fixed", "Pan", "Tilt", "Truck", "Pedestal", "Follow", "Orbit", "Zoom",
	},
}

var matcher = language.NewMatcher([]language.Tag{
	language.Chinese, // default, as in the original app
	language.English,
})

// Match resolves a BCP 47 tag (e.g. "zh-CN", "en-US") to the closest
// supported label set. Unknown or empty tags fall back to Chinese.
func Match(tag string) Labels {
	if tag == "" {
		return chinese
	}
	_, index := language.MatchStrings(matcher, tag)
	if index == 1 {
		return english
	}
	return chinese
}

// Supported lists the tags accepted by Match, preferred first.
func Supported() []string {
	return []string{"zh", "en"}
}
