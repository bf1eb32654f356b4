package template

// arabicRAG holds the Arabic prompt set for answering a query from
// retrieved documents.
var arabicRAG = map[string]string{
	SystemPrompt: "أنت مساعد لتوليد استجابة للمستخدم.\n" +
		"سيتم تزويدك بمجموعة من الوثائق المرتبطة باستفسار المستخدم.\n" +
		"تجاهل الوثائق التي ليست ذات صلة باستفسار المستخدم.\n" +
		"يمكنك الاعتذار للمستخدم إذا لم تتمكن من توليد استجابة.\n" +
		"أجب بالإنجليزية إذا كان السؤال باللغة الإنجليزية، وبالعربية إذا كان السؤال باللغة العربية.\n" +
		"كن مهذبًا ومحترمًا مع المستخدم.\n" +
		"كن دقيقًا ومختصرًا في إجابتك. تجنب المعلومات غير الضرورية.",

	DocumentPrompt: "## الوثيقة رقم: $doc_num\n" +
		"### المحتوى: $chunk_text",

	FooterPrompt: "السؤال: $query\n" +
		"## الإجابة:",
}
