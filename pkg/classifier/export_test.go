package classifier

var TranslatePattern = translatePattern
