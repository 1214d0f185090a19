package domain

// TrophySummary aggregates a user's unlocked trophies.
type TrophySummary struct {
	Level    int   `json:"level"`
	Progress int   `json:"progress"`
	Total    int64 `json:"total"`
	Bronze   int64 `json:"bronze"`
	Silver   int64 `json:"silver"`
	Gold     int64 `json:"gold"`
	Platinum int64 `json:"platinum"`
}

type levelBand struct {
	startLevel   int
	endLevel     int
	pointsPerLvl int64
	startPoints  int64
}

var levelBands = [...]levelBand{
	{1, 99, 60, 0},
	{100, 199, 90, 5940},
	{200, 299, 450, 14940},
	{300, 399, 900, 59940},
	{400, 499, 1350, 149940},
	{500, 599, 1800, 284940},
	{600, 699, 2250, 464940},
	{700, 799, 2700, 689940},
	{800, 899, 3150, 959940},
	{900, 999, 3600, 1274940},
}

const (
	pointsBronze   = 15
	pointsSilver   = 30
	pointsGold     = 90
	pointsPlatinum = 300
)

// TrophyLevel maps trophy points to a level and the percentage towards the next one.
func TrophyLevel(points int64) (level int, progress int) {
	if points < 0 {
		points = 0
	}

	for _, band := range levelBands {
		bandPoints := int64(band.endLevel-band.startLevel+1) * band.pointsPerLvl
		if points < band.startPoints+bandPoints {
			offset := points - band.startPoints
			level = band.startLevel + int(offset/band.pointsPerLvl)
			progress = int((offset % band.pointsPerLvl) * 100 / band.pointsPerLvl)
			return level, progress
		}
	}

	return 999, 100
}

// NewTrophySummary computes level and totals from grade counts. unlocked is
// preferred as the total when the client reported it.
func NewTrophySummary(unlocked, bronze, silver, gold, platinum int64) TrophySummary {
	total := unlocked
	if total <= 0 {
		total = bronze + silver + gold + platinum
	}

	points := bronze*pointsBronze + silver*pointsSilver + gold*pointsGold + platinum*pointsPlatinum
	level, progress := TrophyLevel(points)

	return TrophySummary{
		Level:    level,
		Progress: progress,
		Total:    total,
		Bronze:   bronze,
		Silver:   silver,
		Gold:     gold,
		Platinum: platinum,
	}
}
