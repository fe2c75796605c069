package wordlist

import (
	"strings"

	"github.com/standardbeagle/csac/internal/types"
)

// KeywordText lists the C# keywords and contextual keywords
const KeywordText = "abstract add alias as ascending async await base break case catch checked " +
	"continue default delegate descending do dynamic else event explicit extern false finally " +
	"fixed for foreach from get global goto group if implicit in interface internal into is " +
	"join let lock namespace new null object operator orderby out override params partial " +
	"private protected public readonly ref remove return sealed select set sizeof stackalloc " +
	"switch this throw true try typeof unchecked unsafe using value virtual where while yield"

// TypeWordText lists the built-in type names and type-introducing keywords
const TypeWordText = "bool byte char class const decimal double enum float int long sbyte " +
	"short static string struct uint ulong ushort var void"

var (
	Keywords  = strings.Fields(KeywordText)
	TypeWords = strings.Fields(TypeWordText)
)

// KeywordString renders the keyword list, filtered, as keywords
func KeywordString(filter string) string {
	return New().AddKeywords(Keywords, types.KindKeyword, filter).String()
}

// Defaults returns a builder holding the keywords and the type words
func Defaults() *Builder {
	return New().
		AddKeywords(Keywords, types.KindKeyword, "").
		AddKeywords(TypeWords, types.KindBuiltinType, "")
}
