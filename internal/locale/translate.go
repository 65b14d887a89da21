package locale

// Pick returns the text matching the language, defaulting to Portuguese.
func Pick(lang, english, portuguese string) string {
	if NormalizeLanguage(lang) == LanguageEnglish {
		if english != "" {
			return english
		}
		return portuguese
	}
	if portuguese != "" {
		return portuguese
	}
	return english
}

// Labels holds the interface strings used by the page templates.
type Labels struct {
	LoadMore      string
	Loading       string
	ExitPreview   string
	EditedOn      string
	At            string
	PreviousPost  string
	NextPost      string
	Minutes       string
	NotFound      string
	BackHome      string
	LoadFailed    string
	TryAgain      string
	ContentFailed string
}

// LabelsFor returns the interface strings for lang.
func LabelsFor(lang string) Labels {
	return Labels{
		LoadMore:      Pick(lang, "Load more posts", "Carregar mais posts"),
		Loading:       Pick(lang, "Loading...", "Carregando..."),
		ExitPreview:   Pick(lang, "Exit preview mode", "Sair do modo Preview"),
		EditedOn:      Pick(lang, "edited on", "editado em"),
		At:            Pick(lang, "at", "às"),
		PreviousPost:  Pick(lang, "Previous post", "Post anterior"),
		NextPost:      Pick(lang, "Next post", "Próximo post"),
		Minutes:       "min",
		NotFound:      Pick(lang, "Post not found", "Post não encontrado"),
		BackHome:      Pick(lang, "Back to home", "Voltar para o início"),
		LoadFailed:    Pick(lang, "Could not load more posts.", "Não foi possível carregar mais posts."),
		TryAgain:      Pick(lang, "Try again", "Tentar novamente"),
		ContentFailed: Pick(lang, "The content service is unavailable right now.", "O serviço de conteúdo está indisponível no momento."),
	}
}
