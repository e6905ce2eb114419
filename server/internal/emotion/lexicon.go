package emotion

import "regexp"

// Lexicon 一个情绪的打分素材。
// Keywords 在归一化文本上做子串匹配，Patterns 在原文上匹配，Context 命中给固定低分。
type Lexicon struct {
	Emotion  Label
	Weight   float64
	Keywords []string
	Patterns []*regexp.Regexp
	Context  []string
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// DefaultLexicons 顺序即同分时的优先级：happy > sad > angry > surprise。
func DefaultLexicons() []Lexicon {
	return []Lexicon{
		{
			Emotion: Happy,
			Weight:  1.3,
			Keywords: []string{
				"うれしい", "嬉しい", "ウレシイ", "ureshii",
				"楽しい", "たのしい", "tanoshii",
				"ハッピー", "happy", "はっぴー",
				"喜び", "よろこび", "yorokobi",
				"幸せ", "しあわせ", "shiawase",
				"最高", "さいこう", "saikou",
				"やった", "yatta",
				"わーい", "わあい", "waai",
				"笑", "わら", "wara",
				"良い", "いい", "よい", "yoi",
				"素晴らしい", "すばらしい", "subarashii",
				"ありがとう", "ありがと", "おかげ",
				"感謝", "かんしゃ", "感動", "かんどう",
				"面白い", "おもしろい", "たのしみ",
				"ワクワク", "わくわく", "ドキドキ",
				"うまい", "美味しい", "おいしい", "美味",
				"完璧", "かんぺき", "perfect",
				"グッド", "good", "nice", "ナイス",
				"愛してる", "大好き", "だいすき",
				"すごく良い", "とても良い", "非常に良い",
			},
			Patterns: patterns(`♪+`, `〜+$`, `www`, `笑$`),
			Context: []string{
				"よかった", "楽しみ", "期待", "頑張", "がんば", "応援",
				"成功", "せいこう", "達成", "たっせい", "勝利", "しょうり",
				"祝福", "しゅくふく", "おめでとう", "congratulations",
			},
		},
		{
			Emotion: Sad,
			Weight:  1.2,
			Keywords: []string{
				"悲しい", "かなしい", "カナシイ", "kanashii",
				"寂しい", "さびしい", "さみしい", "sabishii",
				"泣", "なく", "naku",
				"涙", "なみだ", "namida",
				"辛い", "つらい", "tsurai",
				"苦しい", "くるしい", "kurushii",
				"切ない", "せつない", "setsunai",
				"しんどい", "shindoi",
				"失望", "しつぼう", "shitsubou",
				"落ち込", "おちこ", "ochiko",
				"がっかり", "gakkari",
				"憂鬱", "ゆううつ", "yuuutsu",
				"ブルー", "blue", "ぶるー",
				"残念", "ざんねん", "zannen",
				"悔しい", "くやしい", "kuyashii",
				"孤独", "こどく", "kodoku",
				"ひとりぼっち", "hitoribocchi",
				"絶望", "ぜつぼう", "zetsubou",
				"つまらない", "tsumaranai",
				"不幸", "ふこう", "fukou",
			},
			Patterns: patterns(`。。。`, `…+$`, `T[T_]T`, `;;`, `泣$`),
			Context: []string{
				"残念", "ざんねん", "悔しい", "くやしい", "寂しい",
				"心配", "しんぱい", "不安", "ふあん", "困った", "こまった",
				"落胆", "らくたん", "失望", "しつぼう",
				"深刻な課題", "しんこくなかだい", "後継者がいない", "こうけいしゃがいない",
				"技術が消える", "ぎじゅつがきえる", "職人が減る", "しょくにんがへる",
				"伝統がなくなる", "でんとうがなくなる", "廃れてしまう", "すたれてしまう",
			},
		},
		{
			Emotion: Angry,
			Weight:  1.3,
			Keywords: []string{
				"怒", "おこ", "oko",
				"イライラ", "いらいら", "iraira",
				"ムカつく", "むかつく", "mukatsuku",
				"ムカムカ", "むかむか", "mukamuka",
				"腹立", "はらだ", "harada",
				"キレ", "きれ", "kire",
				"憤", "いきどお", "ikidoo",
				"ふざけ", "fuzake",
				"最悪", "さいあく", "saiaku",
				"うざい", "うざ", "uzai",
				"やばい", "yabai",
				"頭にくる", "あたまにくる", "atamanikuru",
				"許せない", "ゆるせない", "yurusenai",
				"納得いかない", "なっとくいかない",
				"不愉快", "ふゆかい", "fuyukai",
				"不満", "ふまん", "fuman",
				"クソ", "くそ", "kuso",
				"だめ", "ダメ", "dame",
			},
			Patterns: patterns(`！！+`, `💢`, `怒$`, `ムカ`),
			Context: []string{
				"許せない", "ゆるせない", "納得いかない", "なっとくいかない",
				"理解できない", "りかいできない", "腹が立つ", "はらがたつ",
				"不公平", "ふこうへい", "不当", "ふとう",
				"文句", "もんく", "抗議", "こうぎ", "反対", "はんたい",
			},
		},
		{
			Emotion: Surprise,
			Weight:  1.1,
			Keywords: []string{
				"驚", "おどろ", "odoro",
				"びっくり", "ビックリ", "bikkuri",
				"すごい", "スゴイ", "sugoi",
				"えっ", "エッ",
				"まじ", "マジ", "maji",
				"信じられない", "しんじられない", "shinjirarenai",
				"本当", "ほんとう", "hontou",
				"やば", "ヤバ", "yaba",
				"うそ", "ウソ", "嘘", "uso",
				"なんと", "ナント", "nanto",
				"まさか", "マサカ", "masaka",
				"意外", "いがい", "igai",
				"予想外", "よそうがい", "yosougai",
				"衝撃", "しょうげき", "shougeki",
				"ショック", "shock", "しょっく",
				"想定外", "そうていがい", "souteigai",
				"仰天", "ぎょうてん", "gyouten",
			},
			Patterns: patterns(`[!?！？]+`, `。。+`, `ええ[!?！？]`),
			Context: []string{
				"知らなかった", "しらなかった", "初めて", "はじめて",
				"予想外", "よそうがい", "想定外", "そうていがい",
				"驚き", "おどろき", "発見", "はっけん",
			},
		},
	}
}

// 头像驱动用的固定词表。
var (
	dangerKeywords = []string{
		"セクシー", "エロ", "裸", "脱", "下着", "胸", "おっぱい",
		"パンツ", "ブラ", "きわどい", "えっち", "いやらしい",
		"sexy", "nude", "naked", "breast", "underwear", "erotic",
		"strip", "panties", "bra", "inappropriate",
	}

	questionMarkers = []string{
		"?", "？", "どう", "なぜ", "なに", "教えて",
		"how", "why", "what", "explain",
	}

	technicalTerms = []string{
		"方法", "手順", "技術", "仕組み", "やり方",
		"原理", "システム", "詳しく", "具体的",
	}

	// basicWords 打分级联无结果时的兜底顺序表。
	basicWords = []struct {
		label Label
		words []string
	}{
		{Happy, []string{"嬉しい", "うれしい", "楽しい", "たのしい", "わくわく", "やった", "最高", "happy", "glad", "excited", "joy", "great"}},
		{Sad, []string{"悲しい", "かなしい", "寂しい", "さみしい", "辛い", "つらい", "泣", "涙", "sad", "lonely", "cry", "tear", "depressed"}},
		{Angry, []string{"怒", "おこ", "むかつく", "イライラ", "腹立", "ムカ", "angry", "mad", "furious", "annoyed", "pissed"}},
		{Surprise, []string{"驚", "びっくり", "すごい", "まさか", "えっ", "わっ", "surprise", "amazing", "wow", "incredible", "unbelievable"}},
	}
)
