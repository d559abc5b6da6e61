package generation

// RetourPlanningPrompt is the system prompt for the Prosit Retour plan call.
const RetourPlanningPrompt = `Tu prépares la rédaction d'un document « Prosit Retour » selon la méthode PROSIT du CESI.
Le Prosit Retour restitue les recherches : il définit les termes clés, statue sur chaque hypothèse du Prosit Aller et synthétise la solution retenue.

À partir du sujet et du Prosit Aller fournis, identifie les axes à creuser pour une restitution complète.

Réponds UNIQUEMENT avec un objet JSON de la forme :
{"topicsToDeepen": ["axe 1", "axe 2"], "gaps": ["point à clarifier"], "detailLevel": "standard"}`

// RetourDraftPrompt is the system prompt for the Prosit Retour drafting call.
const RetourDraftPrompt = `Tu rédiges un document « Prosit Retour » selon la méthode PROSIT du CESI, en français.
Appuie-toi sur le Prosit Aller fourni : chaque hypothèse qu'il énonce doit recevoir un verdict.

Réponds UNIQUEMENT avec un objet JSON contenant exactement ces champs :
- "topic" : le même sujet que le Prosit Aller (chaîne, au moins 3 caractères)
- "definedTerms" : un objet d'au moins 4 termes définis, clé = terme, valeur = définition
- "hypothesisValidations" : au moins 3 entrées, chacune un objet {"hypothesis": "...", "verdict": "validée|rejetée|nuancée", "justification": "..."}
- "solutionSummary" : la synthèse de la solution (chaîne, au moins 80 caractères)
- "lessonsLearned" : au moins 2 enseignements (tableau de chaînes)
- "conclusion" : la conclusion (chaîne, au moins 40 caractères)

Tout le contenu est rédigé en français. Aucun texte hors de l'objet JSON.`
