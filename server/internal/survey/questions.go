package survey

// Option 一个评分选项。
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question 问卷题目，目前只有 5 档评分题。
type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

func rating(id, text string, labels [5]string) Question {
	q := Question{ID: id, Type: "rating", Question: text}
	for i, l := range labels {
		v := string(rune('5' - i))
		q.Options = append(q.Options, Option{Value: v, Label: v + " - " + l})
	}
	return q
}

var questions = map[string][]Question{
	"ja": {
		rating("q1", "京友禅への関心度や理解度は変化しましたか？",
			[5]string{"大きく向上した", "やや向上した", "変わらない", "やや低下した", "低下した"}),
		rating("q2", "京友禅の体験工房や商品購入等の意欲は変わりましたか？",
			[5]string{"大きく高まった", "やや高まった", "変わらない", "やや低下した", "低下した"}),
		rating("q3", "このアバターとの対話体験を他の方にもすすめたいと思いましたか？",
			[5]string{"強くそう思う", "ややそう思う", "どちらともいえない", "あまり思わない", "全く思わない"}),
	},
	"en": {
		rating("q1", "Has your interest in and understanding of Kyo-Yuzen changed?",
			[5]string{"Significantly increased", "Somewhat increased", "No change", "Slightly decreased", "Decreased"}),
		rating("q2", "Has your interest in experiencing Kyo-Yuzen workshops or purchasing products changed?",
			[5]string{"Significantly increased", "Somewhat increased", "No change", "Slightly decreased", "Decreased"}),
		rating("q3", "Would you recommend this avatar conversation experience to others?",
			[5]string{"Strongly agree", "Somewhat agree", "Neutral", "Somewhat disagree", "Strongly disagree"}),
	},
}

// Questions 返回指定语言的问卷，未知语言回退到日语。返回的是拷贝。
func Questions(language string) []Question {
	qs, ok := questions[language]
	if !ok {
		qs = questions["ja"]
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Options = append([]Option(nil), q.Options...)
		out[i] = q
	}
	return out
}

// ThankYou 提交后的致谢台词。
func ThankYou(language string) string {
	if language == "en" {
		return "Thank you! Here's your special reward!"
	}
	return "アンケートありがとうございました！約束の特別なプレゼントです！"
}

// RewardImageURL 奖励图片地址。
const RewardImageURL = "/api/reward-image"
