package entities

// MovieRecommendation é um filme sugerido a partir das avaliações dos amigos.
type MovieRecommendation struct {
	Movie  *Movie  `json:"movie"`
	Score  float64 `json:"score"`
	Raters int     `json:"raters"`
}
