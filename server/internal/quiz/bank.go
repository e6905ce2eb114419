package quiz

// Question 一道三选一题目。Correct 只在服务端使用，不下发客户端。
type Question struct {
	Text        string
	Options     []string
	Correct     int
	Explanation string
}

// Bank 按语言分组的题库。
type Bank map[string][]Question

// DefaultBank 京友禅题库（ja/en 各 3 题）。
func DefaultBank() Bank {
	return Bank{
		"ja": {
			{
				Text: "ふたばが話していた「挿し友禅」とは、どんな工程のこと？",
				Options: []string{
					"A) 模様の輪郭に糊を置く工程",
					"B) 筆や刷毛で模様に色を挿していく工程",
					"C) 布を水で洗って仕上げる工程",
				},
				Correct:     1,
				Explanation: "正解わん！挿し友禅は筆や刷毛で手作業で模様に色を挿していく工程のことわん。友禅染の中で最も絵画的で華やかな部分を担当していて、この工程があるから京友禅は美しい色彩を持つようになるんだわん✨",
			},
			{
				Text: "「ぼかし」という技法について、正しい説明はどれ？",
				Options: []string{
					"A) 模様の外側から内側にかけて徐々に色を薄くしていく技法",
					"B) 複数の色を混ぜて新しい色を作る技法",
					"C) 布を熱で炙って乾燥させる技法",
				},
				Correct:     0,
				Explanation: "正解わん！ぼかしは、模様の外側から内側にかけて徐々に色を薄くしていく技法わん。水を含ませた筆で染料の境界を優しくなぞると、自然なグラデーションができて立体感が出るんだわん。力加減が難しくて、最初は失敗したこともあるわん🎨",
			},
			{
				Text: "ふたばが「職人として一番苦労したこと」として話していたのはどれ？",
				Options: []string{
					"A) 道具の手入れを毎日すること",
					"B) 色の濃淡を均一に保つこと",
					"C) 散歩の時間を確保すること",
				},
				Correct:     1,
				Explanation: "正解わん！最初の頃は、色の濃淡を均一に保つのが本当に難しかったわん。同じ色を何度も作ろうとしても、微妙に違う色になっちゃうんだわん。先輩に何度も教えてもらって、今のレベルになったわん。根気が必要な仕事だけど、やりがいがあるわん💪",
			},
		},
		"en": {
			{
				Text: `What is "Sashi-Yuzen" that Futaba talked about?`,
				Options: []string{
					"A) The process of placing glue on pattern outlines",
					"B) The process of applying colors to patterns with brushes",
					"C) The process of washing and finishing the fabric",
				},
				Correct:     1,
				Explanation: "Correct wan! Sashi-Yuzen is the process of applying colors to kimono patterns by hand using brushes. It's the most artistic and vibrant part of Yuzen dyeing, and this process gives Kyo-Yuzen its beautiful colors✨",
			},
			{
				Text: `Which description correctly explains the "bokashi" technique?`,
				Options: []string{
					"A) A technique that gradually lightens color from outside to inside",
					"B) A technique that mixes multiple colors to create new ones",
					"C) A technique that dries fabric by heating it",
				},
				Correct:     0,
				Explanation: "Correct wan! Bokashi gradually lightens the color from the outside to the inside of a pattern. Gently tracing the dye boundary with a water-soaked brush creates a natural gradation and gives depth wan. The pressure control is difficult, and I failed at first too🎨",
			},
			{
				Text: "What did Futaba mention as the biggest challenge as a craftsperson?",
				Options: []string{
					"A) Maintaining tools every day",
					"B) Keeping color intensity uniform",
					"C) Finding time for walks",
				},
				Correct:     1,
				Explanation: "Correct wan! At first, keeping the color intensity uniform was really difficult wan. Even when trying to make the same color multiple times, it would turn out slightly different wan. With repeated teaching from seniors, I reached my current level. It requires patience, but it's rewarding work💪",
			},
		},
	}
}

// questions 未知语言回退到日语。
func (b Bank) questions(language string) []Question {
	if qs, ok := b[language]; ok && len(qs) > 0 {
		return qs
	}
	return b["ja"]
}
